package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracker 操作延迟（秒），outcome: ok / not_found / invalid_input / conflict / unavailable / error
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fairshare_operation_duration_seconds",
			Help:    "Tracker operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"operation", "outcome"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	// 慢查询耗时（秒）
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12.8s
		},
	)

	// Outbox 事件发布计数，status: sent / failed
	OutboxEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Total number of outbox events handled by the dispatcher",
		},
		[]string{"routing_key", "status"},
	)

	// 幂等重放计数
	IdempotentReplayCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotent_replay_total",
			Help: "Total number of create requests answered from a stored idempotency key",
		},
		[]string{"scope"},
	)
)

// RecordOperation 记录 Tracker 操作延迟
func RecordOperation(operation, outcome string, duration time.Duration) {
	OperationDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// IncrementOutboxEvent 增加 outbox 事件计数
func IncrementOutboxEvent(routingKey, status string) {
	OutboxEventCount.WithLabelValues(routingKey, status).Inc()
}

// IncrementIdempotentReplay 增加幂等重放计数
func IncrementIdempotentReplay(scope string) {
	IdempotentReplayCount.WithLabelValues(scope).Inc()
}
