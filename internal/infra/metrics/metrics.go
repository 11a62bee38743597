package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestCyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_cycles_total",
		Help: "Количество завершённых циклов опроса лент",
	})
	IngestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_errors_total",
		Help: "Ошибки получения лент по типу",
	}, []string{"kind"})
	PostsIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posts_ingested_total",
		Help: "Количество новых постов, добавленных в очереди",
	}, []string{"channel"})
	DeliverySendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivery_sends_total",
		Help: "Количество постов, доставленных подписчикам",
	})
	DeliverySendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "delivery_send_errors_total",
		Help: "Ошибки отправки постов подписчикам",
	})
	PublishesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publishes_total",
		Help: "Количество публикаций постов в каналы",
	}, []string{"mode"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_sessions",
		Help: "Количество живых сессий подписчиков в процессе",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	DeliveriesByChat = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_by_chat_total",
		Help: "Количество доставленных постов по подписчикам",
	}, []string{"chat_id"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		IngestCyclesTotal,
		IngestErrors,
		PostsIngestedTotal,
		DeliverySendsTotal,
		DeliverySendErrors,
		PublishesTotal,
		ActiveSessions,
		NetworkRequestDuration,
		NetworkRequestTotal,
		DeliveriesByChat,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncDelivered увеличивает счётчики доставленных постов.
func IncDelivered(chatID int64) {
	DeliverySendsTotal.Inc()
	DeliveriesByChat.WithLabelValues(strconv.FormatInt(chatID, 10)).Inc()
}
