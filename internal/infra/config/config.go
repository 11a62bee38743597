package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию процесса.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Amsterdam"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token      string `envconfig:"TELEGRAM_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL   string `envconfig:"RABBITMQ_URL"`
	RabbitQueue string `envconfig:"RABBITMQ_EVENTS_QUEUE" default:"repost_events"`

	Feed struct {
		ProxyURL     string        `envconfig:"FEED_PROXY_URL" default:"https://tg.i-c-a.su/rss"`
		CycleDelay   time.Duration `envconfig:"FEED_CYCLE_DELAY" default:"10s"`
		ChannelDelay time.Duration `envconfig:"FEED_CHANNEL_DELAY" default:"10s"`
	} `envconfig:""`

	Delivery struct {
		Tick         time.Duration `envconfig:"DELIVERY_TICK" default:"10s"`
		BetweenPosts time.Duration `envconfig:"DELIVERY_BETWEEN_POSTS" default:"5s"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
