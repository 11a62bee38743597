package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/metrics"
)

// Scheduler выполняет отложенные публикации. Ссылка и канал фиксируются
// значением при постановке; содержимое поста перечитывается из хранилища
// в момент срабатывания, поэтому публикуется последняя редакция текста
// и медиа. Поставленный таймер не отменяется последующими действиями
// подписчика и срабатывает всегда.
type Scheduler struct {
	sessions  domain.SessionRepo
	transport domain.Transport
	events    domain.EventPublisher
	log       zerolog.Logger

	mu     sync.Mutex
	timers map[int64]*time.Timer
	nextID int64
	closed bool
}

// NewScheduler создаёт планировщик.
func NewScheduler(sessions domain.SessionRepo, transport domain.Transport, events domain.EventPublisher, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		sessions:  sessions,
		transport: transport,
		events:    events,
		log:       log,
		timers:    make(map[int64]*time.Timer),
	}
}

// Schedule ставит одноразовый таймер публикации. Вызов не блокирует.
func (s *Scheduler) Schedule(chatID int64, link, channel string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.nextID++
	id := s.nextID
	s.timers[id] = time.AfterFunc(delay, func() {
		s.fire(chatID, link, channel)
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
	})
	s.log.Info().Int64("chat", chatID).Str("link", link).Str("channel", channel).Dur("delay", delay).Msg("публикация отложена")
}

// fire выполняет публикацию в момент срабатывания таймера. Интерактивный
// контекст к этому времени уже закрыт, поэтому ошибки только логируются.
func (s *Scheduler) fire(chatID int64, link, channel string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	post, err := s.sessions.GetPost(ctx, chatID, link)
	if err != nil {
		s.log.Error().Err(err).Int64("chat", chatID).Str("link", link).Msg("отложенная публикация: пост не прочитан")
		return
	}
	if err := s.transport.PublishPost(ctx, channel, post); err != nil {
		s.log.Error().Err(err).Int64("chat", chatID).Str("link", link).Str("channel", channel).Msg("отложенная публикация не удалась")
		return
	}
	metrics.PublishesTotal.WithLabelValues("delayed").Inc()
	if s.events != nil {
		if err := s.events.Publish(ctx, domain.Event{Type: domain.EventPostPublished, ChatID: chatID, Channel: channel, Link: link}); err != nil {
			s.log.Warn().Err(err).Msg("событие публикации не отправлено")
		}
	}
	s.log.Info().Int64("chat", chatID).Str("link", link).Str("channel", channel).Msg("отложенная публикация выполнена")
}

// Stop снимает все несработавшие таймеры.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}
