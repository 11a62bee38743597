package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound возвращается, когда сессия подписчика ещё не создана.
var ErrSessionNotFound = errors.New("сессия не найдена")

// ErrPostNotFound возвращается, когда пост отсутствует в очереди подписчика.
var ErrPostNotFound = errors.New("пост не найден")

// FeedError описывает ошибку получения ленты канала.
// Permanent=true означает, что источник подтвердил отсутствие канала:
// такой канал отписывается у всех сессий и больше не опрашивается.
// Любая другая ошибка считается временной и повторяется в следующем цикле.
type FeedError struct {
	Nickname  string
	Permanent bool
	Err       error
}

func (e *FeedError) Error() string {
	kind := "временная"
	if e.Permanent {
		kind = "постоянная"
	}
	return fmt.Sprintf("лента %s: %s ошибка: %v", e.Nickname, kind, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// IsPermanentFeedError сообщает, указывает ли ошибка на отсутствие канала.
func IsPermanentFeedError(err error) bool {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Permanent
	}
	return false
}
