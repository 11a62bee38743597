package domain

import (
	"context"
	"time"
)

// SessionRepo управляет сессиями подписчиков и их очередями постов.
// Каждая задача перечитывает сессию перед действием: запись в хранилище —
// единственный источник истины между фоновыми циклами и командами.
type SessionRepo interface {
	GetSession(ctx context.Context, chatID int64) (Session, error)
	CreateSession(ctx context.Context, chatID int64) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)

	SetSubscribedChannels(ctx context.Context, chatID int64, channels []string) error
	SetOwnedChannels(ctx context.Context, chatID int64, channels []string) error
	// RemoveSubscribedChannel отписывает канал у всех сессий разом
	// (самовосстановление после постоянной ошибки ленты).
	RemoveSubscribedChannel(ctx context.Context, nickname string) error
	SetDeliveryPaused(ctx context.Context, chatID int64, paused bool) error

	AppendPost(ctx context.Context, chatID int64, post Post) error
	GetPost(ctx context.Context, chatID int64, link string) (Post, error)
	SetPostDelivered(ctx context.Context, chatID int64, link string, delivered bool) error
	SetPostDeleted(ctx context.Context, chatID int64, link string, deleted bool) error
	SetPostDescription(ctx context.Context, chatID int64, link, description string) error
	AddPostMedia(ctx context.Context, chatID int64, link string, item MediaItem) error
	RemovePostMedia(ctx context.Context, chatID int64, link, mediaID string) error
}

// FeedSource возвращает нормализованный список постов канала.
type FeedSource interface {
	Fetch(ctx context.Context, nickname string) ([]Post, error)
}

// Transport отправляет сообщения подписчику и публикует посты в каналы.
type Transport interface {
	SendText(ctx context.Context, chatID int64, html string) (MessageRef, error)
	// SendPost отправляет пост составным блоком: сначала медиа-группу,
	// затем текст. Возвращает все идентификаторы в порядке отправки.
	SendPost(ctx context.Context, chatID int64, post Post, withControls bool) ([]MessageRef, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	PublishPost(ctx context.Context, channel string, post Post) error
}

// Assistant выполняет одиночный запрос к языковой модели.
type Assistant interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}

// EventPublisher отправляет события жизненного цикла во внешнюю шину.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
