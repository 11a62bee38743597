package domain

import "time"

// MediaItem описывает один медиа-элемент поста.
// Удаление выполняется по ID, а не по позиции, чтобы пережить
// параллельные правки состава медиа.
type MediaItem struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// Post представляет пост из отслеживаемого канала в очереди подписчика.
// Link уникален внутри очереди одного подписчика. Пост никогда не удаляется
// физически: отложенная публикация может ссылаться на него после Deleted=true.
type Post struct {
	Link            string      `json:"link"`
	Description     string      `json:"description"`
	Media           []MediaItem `json:"media"`
	ChannelNickname string      `json:"channel_nickname"`
	ChannelLink     string      `json:"channel_link"`
	Delivered       bool        `json:"delivered"`
	Deleted         bool        `json:"deleted"`
}

// HasMedia сообщает, есть ли у поста медиа-элементы.
func (p Post) HasMedia() bool {
	return len(p.Media) > 0
}

// Session хранит долговременное состояние одного подписчика.
type Session struct {
	ChatID             int64
	SubscribedChannels []string
	OwnedChannels      []string
	Posts              []Post
	DeliveryPaused     bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Subscribed проверяет подписку сессии на канал.
func (s Session) Subscribed(nickname string) bool {
	for _, ch := range s.SubscribedChannels {
		if ch == nickname {
			return true
		}
	}
	return false
}

// FindPost возвращает пост очереди по ссылке.
func (s Session) FindPost(link string) (Post, bool) {
	for _, p := range s.Posts {
		if p.Link == link {
			return p, true
		}
	}
	return Post{}, false
}

// MessageRef — идентификатор отправленного в чат сообщения.
type MessageRef struct {
	MessageID  int
	HasButtons bool
}

// Event описывает событие жизненного цикла поста для внешних потребителей.
type Event struct {
	Type    string    `json:"type"`
	ChatID  int64     `json:"chat_id"`
	Channel string    `json:"channel,omitempty"`
	Link    string    `json:"link,omitempty"`
	At      time.Time `json:"at"`
}

// Типы событий жизненного цикла.
const (
	EventPostIngested  = "post_ingested"
	EventPostDelivered = "post_delivered"
	EventPostPublished = "post_published"
)
