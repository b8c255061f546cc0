package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 单个项目对账耗时（秒）
	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_reconcile_duration_seconds",
			Help:    "Time spent reconciling a single project",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"outcome"}, // ok, partial
	)

	ReconcileFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_reconcile_failures_total",
			Help: "Projects whose metrics were zeroed because a lookup failed",
		},
		[]string{"reason"}, // timeout, circuit_open, lookup
	)

	DocumentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_document_transitions_total",
			Help: "Document status transitions by result",
		},
		[]string{"kind", "to", "result"}, // result: applied, rejected, conflict
	)

	TotalsDrift = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_stored_totals_drift_total",
			Help: "Documents whose stored totals differ from the recomputed ones",
		},
		[]string{"kind"},
	)

	OverdueMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_invoices_marked_overdue_total",
			Help: "Invoices moved to OVERDUE by the scheduled run",
		},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"statement"},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		},
	)
)

func RecordReconcileDuration(outcome string, d time.Duration) {
	ReconcileDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func IncrementReconcileFailure(reason string) {
	ReconcileFailures.WithLabelValues(reason).Inc()
}

func IncrementTransition(kind, to, result string) {
	DocumentTransitions.WithLabelValues(kind, to, result).Inc()
}

func IncrementTotalsDrift(kind string) {
	TotalsDrift.WithLabelValues(kind).Inc()
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery labels by the first keyword of the statement to keep cardinality low.
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(statementKind(sql)).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}
