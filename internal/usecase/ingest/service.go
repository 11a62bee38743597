package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/metrics"
)

const (
	defaultCycleDelay   = 10 * time.Second
	defaultChannelDelay = 10 * time.Second

	// Замок на добавление держится дольше пары циклов: за это время
	// пост гарантированно оказывается в очереди и дедуп по ссылке
	// отсекает его без обращения к замку.
	appendGuardTTL = time.Hour
)

// Config собирает зависимости поллера.
type Config struct {
	Sessions     domain.SessionRepo
	Feed         domain.FeedSource
	Cache        domain.Cache
	Events       domain.EventPublisher
	Log          zerolog.Logger
	CycleDelay   time.Duration
	ChannelDelay time.Duration
}

// Service опрашивает ленты всех отслеживаемых каналов и раскладывает
// новые посты по очередям подписчиков. Каналы опрашиваются строго
// последовательно с паузой между ними, чтобы не упереться в лимиты
// источника.
type Service struct {
	sessions     domain.SessionRepo
	feed         domain.FeedSource
	cache        domain.Cache
	events       domain.EventPublisher
	log          zerolog.Logger
	cycleDelay   time.Duration
	channelDelay time.Duration
}

// NewService создаёт поллер.
func NewService(cfg Config) *Service {
	if cfg.CycleDelay <= 0 {
		cfg.CycleDelay = defaultCycleDelay
	}
	if cfg.ChannelDelay <= 0 {
		cfg.ChannelDelay = defaultChannelDelay
	}
	return &Service{
		sessions:     cfg.Sessions,
		feed:         cfg.Feed,
		cache:        cfg.Cache,
		events:       cfg.Events,
		log:          cfg.Log,
		cycleDelay:   cfg.CycleDelay,
		channelDelay: cfg.ChannelDelay,
	}
}

// Run крутит циклы опроса до отмены контекста. Пауза между циклами
// одинакова и после успеха, и после ошибки.
func (s *Service) Run(ctx context.Context) {
	for {
		s.RunCycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cycleDelay):
		}
	}
}

// RunCycle выполняет один проход по объединению отслеживаемых каналов
// всех сессий. Канал, на который подписаны несколько сессий,
// опрашивается один раз за цикл.
func (s *Service) RunCycle(ctx context.Context) {
	sessions, err := s.sessions.ListSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("опрос: сессии не прочитаны")
		return
	}
	if len(sessions) == 0 {
		return
	}

	for i, channel := range subscribedUnion(sessions) {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.channelDelay):
			}
		}

		posts, err := s.feed.Fetch(ctx, channel)
		if err != nil {
			if domain.IsPermanentFeedError(err) {
				metrics.IngestErrors.WithLabelValues("permanent").Inc()
				s.log.Warn().Err(err).Str("channel", channel).Msg("опрос: канал исчез, отписываем всех")
				if err := s.sessions.RemoveSubscribedChannel(ctx, channel); err != nil {
					s.log.Error().Err(err).Str("channel", channel).Msg("опрос: отписка не удалась")
				}
				continue
			}
			metrics.IngestErrors.WithLabelValues("transient").Inc()
			s.log.Warn().Err(err).Str("channel", channel).Msg("опрос: лента недоступна, повторим в следующем цикле")
			continue
		}

		s.fanOut(ctx, sessions, channel, posts)
	}
	metrics.IngestCyclesTotal.Inc()
}

// fanOut раскладывает посты канала по очередям подписанных сессий.
// Ключ дедупликации — ссылка поста: уже известный пост не добавляется
// повторно независимо от его флагов.
func (s *Service) fanOut(ctx context.Context, sessions []domain.Session, channel string, posts []domain.Post) {
	for _, session := range sessions {
		if !session.Subscribed(channel) {
			continue
		}
		known := make(map[string]struct{}, len(session.Posts))
		for _, p := range session.Posts {
			known[p.Link] = struct{}{}
		}
		for _, post := range posts {
			if _, ok := known[post.Link]; ok {
				continue
			}
			post.Delivered = false
			post.Deleted = false
			if err := s.appendOnce(ctx, session.ChatID, post); err != nil {
				s.log.Error().Err(err).Int64("chat", session.ChatID).Str("link", post.Link).Msg("опрос: пост не добавлен")
				continue
			}
			known[post.Link] = struct{}{}
			metrics.PostsIngestedTotal.WithLabelValues(channel).Inc()
			if s.events != nil {
				if err := s.events.Publish(ctx, domain.Event{Type: domain.EventPostIngested, ChatID: session.ChatID, Channel: channel, Link: post.Link}); err != nil {
					s.log.Warn().Err(err).Msg("событие добавления не отправлено")
				}
			}
		}
	}
}

// appendOnce добавляет пост под коротким SetNX-замком, сужающим окно
// двойного добавления при наложившихся циклах.
func (s *Service) appendOnce(ctx context.Context, chatID int64, post domain.Post) error {
	appendPost := func() error {
		return s.sessions.AppendPost(ctx, chatID, post)
	}
	if s.cache == nil {
		return appendPost()
	}
	key := fmt.Sprintf("ingest:%d:%s", chatID, post.Link)
	return s.cache.Once(key, appendGuardTTL, appendPost)
}

// subscribedUnion возвращает каналы всех сессий без повторов,
// в порядке первого появления.
func subscribedUnion(sessions []domain.Session) []string {
	seen := make(map[string]struct{})
	var channels []string
	for _, session := range sessions {
		for _, ch := range session.SubscribedChannels {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			channels = append(channels, ch)
		}
	}
	return channels
}
