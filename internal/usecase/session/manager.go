package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/metrics"
	"tg-repost-bot/internal/usecase/delivery"
)

// Runtime — живое состояние одного подписчика в процессе: автомат
// страниц и остановка его цикла доставки.
type Runtime struct {
	ChatID  int64
	Machine *Machine
	cancel  context.CancelFunc
}

// ManagerConfig собирает зависимости менеджера сессий.
type ManagerConfig struct {
	Sessions     domain.SessionRepo
	Transport    domain.Transport
	Tracker      *Tracker
	Scheduler    *Scheduler
	Events       domain.EventPublisher
	Log          zerolog.Logger
	BaseCtx      context.Context
	Tick         time.Duration
	BetweenPosts time.Duration
}

// Manager владеет отображением подписчик → рантайм и фабрикой
// «загрузить или создать» поверх хранилища. Цикл доставки каждого
// подписчика запускается при первом обращении и живёт, пока жив
// базовый контекст менеджера.
type Manager struct {
	mu       sync.Mutex
	runtimes map[int64]*Runtime

	sessions     domain.SessionRepo
	transport    domain.Transport
	tracker      *Tracker
	scheduler    *Scheduler
	events       domain.EventPublisher
	log          zerolog.Logger
	baseCtx      context.Context
	tick         time.Duration
	betweenPosts time.Duration
}

// NewManager создаёт менеджер сессий.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.BaseCtx == nil {
		cfg.BaseCtx = context.Background()
	}
	if cfg.Tracker == nil {
		cfg.Tracker = NewTracker()
	}
	return &Manager{
		runtimes:     make(map[int64]*Runtime),
		sessions:     cfg.Sessions,
		transport:    cfg.Transport,
		tracker:      cfg.Tracker,
		scheduler:    cfg.Scheduler,
		events:       cfg.Events,
		log:          cfg.Log,
		baseCtx:      cfg.BaseCtx,
		tick:         cfg.Tick,
		betweenPosts: cfg.BetweenPosts,
	}
}

// Tracker возвращает трекер составных доставок.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// Scheduler возвращает планировщик отложенных публикаций.
func (m *Manager) Scheduler() *Scheduler {
	return m.scheduler
}

// Attach возвращает рантайм подписчика. При первом обращении создаёт
// сессию в хранилище (если её нет) и запускает цикл доставки.
func (m *Manager) Attach(ctx context.Context, chatID int64) (*Runtime, error) {
	m.mu.Lock()
	if rt, ok := m.runtimes[chatID]; ok {
		m.mu.Unlock()
		return rt, nil
	}
	m.mu.Unlock()

	if _, err := m.sessions.GetSession(ctx, chatID); err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("чтение сессии: %w", err)
		}
		if _, err := m.sessions.CreateSession(ctx, chatID); err != nil {
			return nil, fmt.Errorf("создание сессии: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.runtimes[chatID]; ok {
		return rt, nil
	}

	machine := NewMachine()
	loopCtx, cancel := context.WithCancel(m.baseCtx)
	rt := &Runtime{ChatID: chatID, Machine: machine, cancel: cancel}

	loop := delivery.NewLoop(delivery.Config{
		ChatID:       chatID,
		Sessions:     m.sessions,
		Transport:    m.transport,
		Recorder:     m.tracker,
		Blocked:      machine.Blocked,
		Events:       m.events,
		Log:          m.log.With().Int64("chat", chatID).Logger(),
		Tick:         m.tick,
		BetweenPosts: m.betweenPosts,
	})
	go loop.Run(loopCtx)

	m.runtimes[chatID] = rt
	metrics.ActiveSessions.Set(float64(len(m.runtimes)))
	m.log.Info().Int64("chat", chatID).Msg("сессия подключена, доставка запущена")
	return rt, nil
}

// Runtime возвращает рантайм подписчика, если он уже подключён.
func (m *Manager) Runtime(chatID int64) (*Runtime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.runtimes[chatID]
	return rt, ok
}

// DeletePost помечает пост удалённым и убирает из чата все сообщения
// его составной доставки. Снятие сообщений best-effort: неудача
// оставляет сообщение видимым, но пост уже помечен удалённым.
func (m *Manager) DeletePost(ctx context.Context, chatID int64, link string) error {
	if err := m.sessions.SetPostDeleted(ctx, chatID, link, true); err != nil {
		return fmt.Errorf("пометка поста удалённым: %w", err)
	}
	for _, ref := range m.tracker.Take(chatID, link) {
		if err := m.transport.DeleteMessage(ctx, chatID, ref.MessageID); err != nil {
			m.log.Warn().Err(err).Int64("chat", chatID).Int("message", ref.MessageID).Msg("сообщение не убрано из чата")
		}
	}
	return nil
}

// PublishEvent отправляет событие во внешнюю шину, если она настроена.
func (m *Manager) PublishEvent(ctx context.Context, event domain.Event) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, event); err != nil {
		m.log.Warn().Err(err).Str("type", event.Type).Msg("событие не отправлено")
	}
}

// Stop останавливает все циклы доставки и планировщик.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for chatID, rt := range m.runtimes {
		rt.cancel()
		delete(m.runtimes, chatID)
	}
	metrics.ActiveSessions.Set(0)
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}
