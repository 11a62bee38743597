package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-repost-bot/internal/adapters/assistant"
	"tg-repost-bot/internal/adapters/bot"
	"tg-repost-bot/internal/adapters/feed"
	"tg-repost-bot/internal/adapters/repo"
	"tg-repost-bot/internal/adapters/telegram"
	"tg-repost-bot/internal/domain"
	"tg-repost-bot/internal/infra/cache"
	"tg-repost-bot/internal/infra/config"
	"tg-repost-bot/internal/infra/db"
	"tg-repost-bot/internal/infra/events"
	"tg-repost-bot/internal/infra/log"
	"tg-repost-bot/internal/infra/metrics"
	"tg-repost-bot/internal/infra/openai"
	"tg-repost-bot/internal/usecase/ingest"
	"tg-repost-bot/internal/usecase/session"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	if err := repoAdapter.EnsureSchema(rootCtx); err != nil {
		logger.Fatal().Err(err).Msg("не удалось подготовить схему БД")
	}

	var appendGuard domain.Cache
	if cfg.RedisAddr != "" {
		appendGuard = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	var eventBus domain.EventPublisher
	if cfg.RabbitURL != "" {
		publisher, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к RabbitMQ")
		}
		defer publisher.Close()
		eventBus = publisher
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	transport := telegram.NewTransport(botAPI, logger)
	assistantAdapter := assistant.NewOpenAI(
		openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout),
		cfg.OpenAI.Model,
		cfg.OpenAI.Timeout,
	)

	scheduler := session.NewScheduler(repoAdapter, transport, eventBus, logger)
	manager := session.NewManager(session.ManagerConfig{
		Sessions:     repoAdapter,
		Transport:    transport,
		Scheduler:    scheduler,
		Events:       eventBus,
		Log:          logger,
		BaseCtx:      rootCtx,
		Tick:         cfg.Delivery.Tick,
		BetweenPosts: cfg.Delivery.BetweenPosts,
	})
	attachExisting(rootCtx, manager, repoAdapter, logger)

	ingestService := ingest.NewService(ingest.Config{
		Sessions:     repoAdapter,
		Feed:         feed.NewFetcher(cfg.Feed.ProxyURL, 30*time.Second),
		Cache:        appendGuard,
		Events:       eventBus,
		Log:          logger,
		CycleDelay:   cfg.Feed.CycleDelay,
		ChannelDelay: cfg.Feed.ChannelDelay,
	})
	go ingestService.Run(rootCtx)

	h := bot.NewHandler(botAPI, logger, manager, repoAdapter, transport, assistantAdapter)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if cfg.Telegram.WebhookURL != "" {
		r.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
			var update tgbotapi.Update
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.HandleUpdate(r.Context(), update)
			w.WriteHeader(http.StatusOK)
		})
	}

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: r}
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("HTTP сервер запущен")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	if cfg.Telegram.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось собрать конфиг вебхука")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить вебхук")
		}
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("бот запущен через вебхук")
	} else {
		updCfg := tgbotapi.NewUpdate(0)
		updCfg.Timeout = 30
		updates := botAPI.GetUpdatesChan(updCfg)
		go func() {
			for upd := range updates {
				h.HandleUpdate(rootCtx, upd)
			}
		}()
		logger.Info().Msg("бот запущен через long polling")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info().Msg("остановка бота")

	rootCancel()
	manager.Stop()
	botAPI.StopReceivingUpdates()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// attachExisting поднимает циклы доставки сессий, созданных до рестарта.
func attachExisting(ctx context.Context, manager *session.Manager, sessions domain.SessionRepo, logger zerolog.Logger) {
	list, err := sessions.ListSessions(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("сессии не перечитаны при старте")
		return
	}
	for _, sess := range list {
		if _, err := manager.Attach(ctx, sess.ChatID); err != nil {
			logger.Error().Err(err).Int64("chat", sess.ChatID).Msg("сессия не подключена при старте")
		}
	}
}

var _ domain.SessionRepo = (*repo.Postgres)(nil)
var _ domain.Transport = (*telegram.Transport)(nil)
var _ domain.FeedSource = (*feed.Fetcher)(nil)
