package delivery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/metrics"
)

const (
	defaultTick         = 10 * time.Second
	defaultBetweenPosts = 5 * time.Second
)

// RefRecorder фиксирует ссылки сообщений составной доставки.
type RefRecorder interface {
	Record(chatID int64, link string, refs []domain.MessageRef)
}

// Config собирает зависимости цикла доставки одного подписчика.
type Config struct {
	ChatID       int64
	Sessions     domain.SessionRepo
	Transport    domain.Transport
	Recorder     RefRecorder
	Blocked      func() bool
	Events       domain.EventPublisher
	Log          zerolog.Logger
	Tick         time.Duration
	BetweenPosts time.Duration
}

// Loop периодически отправляет подписчику недоставленные посты очереди.
// Жизненным циклом владеет супервизор сессий: цикл останавливается
// отменой контекста, а не перезапуском самого себя.
type Loop struct {
	chatID       int64
	sessions     domain.SessionRepo
	transport    domain.Transport
	recorder     RefRecorder
	blocked      func() bool
	events       domain.EventPublisher
	log          zerolog.Logger
	tick         time.Duration
	betweenPosts time.Duration
}

// NewLoop создаёт цикл доставки.
func NewLoop(cfg Config) *Loop {
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	if cfg.BetweenPosts <= 0 {
		cfg.BetweenPosts = defaultBetweenPosts
	}
	return &Loop{
		chatID:       cfg.ChatID,
		sessions:     cfg.Sessions,
		transport:    cfg.Transport,
		recorder:     cfg.Recorder,
		blocked:      cfg.Blocked,
		events:       cfg.Events,
		log:          cfg.Log,
		tick:         cfg.Tick,
		betweenPosts: cfg.BetweenPosts,
	}
}

// Run крутит цикл до отмены контекста.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		l.runCycle(ctx)
	}
}

// runCycle отправляет недоставленные посты в порядке очереди. Ошибка
// отправки одного поста не прерывает ни остальные посты, ни цикл.
func (l *Loop) runCycle(ctx context.Context) {
	if l.isBlocked() {
		return
	}
	session, err := l.sessions.GetSession(ctx, l.chatID)
	if err != nil {
		l.log.Error().Err(err).Int64("chat", l.chatID).Msg("доставка: сессия не прочитана")
		return
	}
	if session.DeliveryPaused {
		return
	}

	for _, post := range session.Posts {
		if post.Delivered || post.Deleted {
			continue
		}
		// Подписчик мог открыть редактор посреди пачки.
		if l.isBlocked() {
			return
		}

		refs, err := l.transport.SendPost(ctx, l.chatID, post, true)
		if l.recorder != nil && len(refs) > 0 {
			l.recorder.Record(l.chatID, post.Link, refs)
		}
		if err != nil {
			metrics.DeliverySendErrors.Inc()
			l.log.Error().Err(err).Int64("chat", l.chatID).Str("link", post.Link).Msg("доставка: пост не отправлен")
			continue
		}
		if err := l.sessions.SetPostDelivered(ctx, l.chatID, post.Link, true); err != nil {
			l.log.Error().Err(err).Int64("chat", l.chatID).Str("link", post.Link).Msg("доставка: флаг не сохранён")
			continue
		}
		metrics.IncDelivered(l.chatID)
		if l.events != nil {
			if err := l.events.Publish(ctx, domain.Event{Type: domain.EventPostDelivered, ChatID: l.chatID, Channel: post.ChannelNickname, Link: post.Link}); err != nil {
				l.log.Warn().Err(err).Msg("событие доставки не отправлено")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.betweenPosts):
		}
	}
}

func (l *Loop) isBlocked() bool {
	return l.blocked != nil && l.blocked()
}
