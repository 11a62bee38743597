package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/metrics"
)

// Postgres реализует domain.SessionRepo на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.SessionRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицы, если их ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS sessions (
    chat_id             BIGINT PRIMARY KEY,
    subscribed_channels TEXT[] NOT NULL DEFAULT '{}',
    owned_channels      TEXT[] NOT NULL DEFAULT '{}',
    delivery_paused     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS posts (
    id               BIGSERIAL PRIMARY KEY,
    chat_id          BIGINT NOT NULL REFERENCES sessions(chat_id) ON DELETE CASCADE,
    link             TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    channel_nickname TEXT NOT NULL DEFAULT '',
    channel_link     TEXT NOT NULL DEFAULT '',
    media            JSONB NOT NULL DEFAULT '[]',
    delivered        BOOLEAN NOT NULL DEFAULT FALSE,
    deleted          BOOLEAN NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (chat_id, link)
);
CREATE INDEX IF NOT EXISTS posts_pending_idx ON posts (chat_id, id) WHERE NOT delivered AND NOT deleted;
`)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "sessions", start, err)
	return err
}

// GetSession возвращает сессию с очередью постов.
func (p *Postgres) GetSession(ctx context.Context, chatID int64) (domain.Session, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var session domain.Session
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT chat_id, subscribed_channels, owned_channels, delivery_paused, created_at, updated_at
FROM sessions WHERE chat_id = $1
`, chatID).Scan(&session.ChatID, &session.SubscribedChannels, &session.OwnedChannels, &session.DeliveryPaused, &session.CreatedAt, &session.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "sessions_get", "sessions", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("чтение сессии: %w", err)
	}

	posts, err := p.listPosts(ctx, chatID)
	if err != nil {
		return domain.Session{}, err
	}
	session.Posts = posts
	return session, nil
}

// CreateSession создаёт пустую сессию. Повторный вызов возвращает существующую.
func (p *Postgres) CreateSession(ctx context.Context, chatID int64) (domain.Session, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO sessions (chat_id) VALUES ($1) ON CONFLICT (chat_id) DO NOTHING
`, chatID)
	metrics.ObserveNetworkRequest("postgres", "sessions_insert", "sessions", start, err)
	if err != nil {
		return domain.Session{}, fmt.Errorf("создание сессии: %w", err)
	}
	return p.GetSession(ctx, chatID)
}

// ListSessions возвращает все сессии с их очередями.
func (p *Postgres) ListSessions(ctx context.Context) ([]domain.Session, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT chat_id, subscribed_channels, owned_channels, delivery_paused, created_at, updated_at
FROM sessions ORDER BY chat_id
`)
	metrics.ObserveNetworkRequest("postgres", "sessions_list", "sessions", start, err)
	if err != nil {
		return nil, fmt.Errorf("список сессий: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	index := make(map[int64]int)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ChatID, &s.SubscribedChannels, &s.OwnedChannels, &s.DeliveryPaused, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("скан сессии: %w", err)
		}
		index[s.ChatID] = len(sessions)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	start = time.Now()
	postRows, err := p.pool.Query(ctx, `
SELECT chat_id, link, description, channel_nickname, channel_link, media, delivered, deleted
FROM posts ORDER BY chat_id, id
`)
	metrics.ObserveNetworkRequest("postgres", "posts_list_all", "posts", start, err)
	if err != nil {
		return nil, fmt.Errorf("список постов: %w", err)
	}
	defer postRows.Close()
	for postRows.Next() {
		var (
			chatID int64
			post   domain.Post
			media  []byte
		)
		if err := postRows.Scan(&chatID, &post.Link, &post.Description, &post.ChannelNickname, &post.ChannelLink, &media, &post.Delivered, &post.Deleted); err != nil {
			return nil, fmt.Errorf("скан поста: %w", err)
		}
		if err := json.Unmarshal(media, &post.Media); err != nil {
			return nil, fmt.Errorf("распаковка медиа: %w", err)
		}
		if i, ok := index[chatID]; ok {
			sessions[i].Posts = append(sessions[i].Posts, post)
		}
	}
	if err := postRows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (p *Postgres) listPosts(ctx context.Context, chatID int64) ([]domain.Post, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT link, description, channel_nickname, channel_link, media, delivered, deleted
FROM posts WHERE chat_id = $1 ORDER BY id
`, chatID)
	metrics.ObserveNetworkRequest("postgres", "posts_list", "posts", start, err)
	if err != nil {
		return nil, fmt.Errorf("чтение очереди: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var (
			post  domain.Post
			media []byte
		)
		if err := rows.Scan(&post.Link, &post.Description, &post.ChannelNickname, &post.ChannelLink, &media, &post.Delivered, &post.Deleted); err != nil {
			return nil, fmt.Errorf("скан поста: %w", err)
		}
		if err := json.Unmarshal(media, &post.Media); err != nil {
			return nil, fmt.Errorf("распаковка медиа: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SetSubscribedChannels сохраняет список отслеживаемых каналов.
func (p *Postgres) SetSubscribedChannels(ctx context.Context, chatID int64, channels []string) error {
	return p.setChannels(ctx, chatID, "subscribed_channels", channels)
}

// SetOwnedChannels сохраняет список собственных каналов.
func (p *Postgres) SetOwnedChannels(ctx context.Context, chatID int64, channels []string) error {
	return p.setChannels(ctx, chatID, "owned_channels", channels)
}

func (p *Postgres) setChannels(ctx context.Context, chatID int64, column string, channels []string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	if channels == nil {
		channels = []string{}
	}
	start := time.Now()
	tag, err := p.pool.Exec(ctx, fmt.Sprintf(`
UPDATE sessions SET %s = $2, updated_at = now() WHERE chat_id = $1
`, column), chatID, channels)
	metrics.ObserveNetworkRequest("postgres", "sessions_set_"+column, "sessions", start, err)
	if err != nil {
		return fmt.Errorf("сохранение каналов: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// RemoveSubscribedChannel отписывает канал у всех сессий.
func (p *Postgres) RemoveSubscribedChannel(ctx context.Context, nickname string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE sessions SET subscribed_channels = array_remove(subscribed_channels, $1), updated_at = now()
WHERE $1 = ANY(subscribed_channels)
`, nickname)
	metrics.ObserveNetworkRequest("postgres", "sessions_remove_channel", "sessions", start, err)
	if err != nil {
		return fmt.Errorf("отписка канала: %w", err)
	}
	return nil
}

// SetDeliveryPaused переключает флаг паузы доставки.
func (p *Postgres) SetDeliveryPaused(ctx context.Context, chatID int64, paused bool) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE sessions SET delivery_paused = $2, updated_at = now() WHERE chat_id = $1
`, chatID, paused)
	metrics.ObserveNetworkRequest("postgres", "sessions_set_paused", "sessions", start, err)
	if err != nil {
		return fmt.Errorf("переключение паузы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// AppendPost добавляет пост в конец очереди. Дубликат по ссылке игнорируется.
func (p *Postgres) AppendPost(ctx context.Context, chatID int64, post domain.Post) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	media, err := json.Marshal(post.Media)
	if err != nil {
		return fmt.Errorf("упаковка медиа: %w", err)
	}
	if post.Media == nil {
		media = []byte("[]")
	}
	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO posts (chat_id, link, description, channel_nickname, channel_link, media, delivered, deleted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (chat_id, link) DO NOTHING
`, chatID, post.Link, post.Description, post.ChannelNickname, post.ChannelLink, media, post.Delivered, post.Deleted)
	metrics.ObserveNetworkRequest("postgres", "posts_insert", "posts", start, err)
	if err != nil {
		return fmt.Errorf("добавление поста: %w", err)
	}
	return nil
}

// GetPost возвращает пост очереди по ссылке.
func (p *Postgres) GetPost(ctx context.Context, chatID int64, link string) (domain.Post, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	var (
		post  domain.Post
		media []byte
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT link, description, channel_nickname, channel_link, media, delivered, deleted
FROM posts WHERE chat_id = $1 AND link = $2
`, chatID, link).Scan(&post.Link, &post.Description, &post.ChannelNickname, &post.ChannelLink, &media, &post.Delivered, &post.Deleted)
	metrics.ObserveNetworkRequest("postgres", "posts_get", "posts", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, domain.ErrPostNotFound
		}
		return domain.Post{}, fmt.Errorf("чтение поста: %w", err)
	}
	if err := json.Unmarshal(media, &post.Media); err != nil {
		return domain.Post{}, fmt.Errorf("распаковка медиа: %w", err)
	}
	return post, nil
}

// SetPostDelivered отмечает пост доставленным.
func (p *Postgres) SetPostDelivered(ctx context.Context, chatID int64, link string, delivered bool) error {
	return p.setPostFlag(ctx, chatID, link, "delivered", delivered)
}

// SetPostDeleted отмечает пост удалённым (мягкое удаление).
func (p *Postgres) SetPostDeleted(ctx context.Context, chatID int64, link string, deleted bool) error {
	return p.setPostFlag(ctx, chatID, link, "deleted", deleted)
}

func (p *Postgres) setPostFlag(ctx context.Context, chatID int64, link, column string, value bool) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	tag, err := p.pool.Exec(ctx, fmt.Sprintf(`
UPDATE posts SET %s = $3 WHERE chat_id = $1 AND link = $2
`, column), chatID, link, value)
	metrics.ObserveNetworkRequest("postgres", "posts_set_"+column, "posts", start, err)
	if err != nil {
		return fmt.Errorf("обновление поста: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// SetPostDescription заменяет текст поста.
func (p *Postgres) SetPostDescription(ctx context.Context, chatID int64, link, description string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE posts SET description = $3 WHERE chat_id = $1 AND link = $2
`, chatID, link, description)
	metrics.ObserveNetworkRequest("postgres", "posts_set_description", "posts", start, err)
	if err != nil {
		return fmt.Errorf("обновление текста: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// AddPostMedia добавляет медиа-элемент в конец списка медиа поста.
func (p *Postgres) AddPostMedia(ctx context.Context, chatID int64, link string, item domain.MediaItem) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("упаковка медиа: %w", err)
	}
	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE posts SET media = media || $3::jsonb WHERE chat_id = $1 AND link = $2
`, chatID, link, payload)
	metrics.ObserveNetworkRequest("postgres", "posts_add_media", "posts", start, err)
	if err != nil {
		return fmt.Errorf("добавление медиа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// RemovePostMedia удаляет медиа-элемент по его ID.
func (p *Postgres) RemovePostMedia(ctx context.Context, chatID int64, link, mediaID string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE posts
SET media = COALESCE(
    (SELECT jsonb_agg(item) FROM jsonb_array_elements(media) AS item WHERE item->>'id' <> $3),
    '[]'::jsonb)
WHERE chat_id = $1 AND link = $2
`, chatID, link, mediaID)
	metrics.ObserveNetworkRequest("postgres", "posts_remove_media", "posts", start, err)
	if err != nil {
		return fmt.Errorf("удаление медиа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}
