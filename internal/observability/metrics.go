// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Subscription metrics
	LogEventsReceived prometheus.Counter
	PrefilterPassed   prometheus.Counter
	Reconnects        prometheus.Counter

	// Fetch metrics
	TransactionsFetched prometheus.Counter
	FetchErrors         *prometheus.CounterVec
	FetchLatency        prometheus.Histogram
	QueueDepth          prometheus.Gauge

	// Detection metrics
	MigrationsDetected   prometheus.Counter
	UnresolvedMints      prometheus.Counter
	DuplicatesSuppressed prometheus.Counter
	LedgerSize           prometheus.Gauge

	// Notification metrics
	NotificationsSent  prometheus.Counter
	NotificationErrors prometheus.Counter

	// Health metrics
	LastEventTimestamp prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pump_migration_bot"
	}

	return &Metrics{
		LogEventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "log_events_received_total",
			Help:      "Total number of log notifications received over WebSocket",
		}),
		PrefilterPassed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "prefilter_passed_total",
			Help:      "Total number of notifications that passed the migration pre-filter",
		}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		TransactionsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "transactions_fetched_total",
			Help:      "Total number of transactions fetched over RPC",
		}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Total number of fetch errors by type",
		}, []string{"error_type"}),
		FetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "latency_seconds",
			Help:      "Transaction fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "queue_depth",
			Help:      "Current number of signatures waiting in the fetch queue",
		}),

		MigrationsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "migrations_detected_total",
			Help:      "Total number of migration events detected",
		}),
		UnresolvedMints: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "unresolved_mints_total",
			Help:      "Total number of migrations detected without a resolvable mint",
		}),
		DuplicatesSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "duplicates_suppressed_total",
			Help:      "Total number of signatures suppressed by the dedup ledger",
		}),
		LedgerSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "ledger_size",
			Help:      "Current number of signatures held in the dedup ledger",
		}),

		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_sent_total",
			Help:      "Total number of migration alerts dispatched downstream",
		}),
		NotificationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notification_errors_total",
			Help:      "Total number of alert dispatch failures",
		}),

		LastEventTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp of the last migration event detected",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordLogEvent increments the log notifications counter.
func RecordLogEvent() {
	DefaultMetrics.LogEventsReceived.Inc()
}

// RecordPrefilterPassed increments the pre-filter counter.
func RecordPrefilterPassed() {
	DefaultMetrics.PrefilterPassed.Inc()
}

// RecordReconnect increments the reconnect counter.
func RecordReconnect() {
	DefaultMetrics.Reconnects.Inc()
}

// RecordFetch records a fetch attempt and its latency.
func RecordFetch(seconds float64) {
	DefaultMetrics.TransactionsFetched.Inc()
	DefaultMetrics.FetchLatency.Observe(seconds)
}

// RecordFetchError records a fetch error by type.
func RecordFetchError(errorType string) {
	DefaultMetrics.FetchErrors.WithLabelValues(errorType).Inc()
}

// UpdateQueueDepth updates the fetch queue depth gauge.
func UpdateQueueDepth(depth int) {
	DefaultMetrics.QueueDepth.Set(float64(depth))
}

// RecordMigrationDetected records a detected migration. unresolved marks
// events whose mint could not be extracted.
func RecordMigrationDetected(unresolved bool, unixTime int64) {
	DefaultMetrics.MigrationsDetected.Inc()
	if unresolved {
		DefaultMetrics.UnresolvedMints.Inc()
	}
	DefaultMetrics.LastEventTimestamp.Set(float64(unixTime))
}

// RecordDuplicateSuppressed increments the dedup suppression counter.
func RecordDuplicateSuppressed() {
	DefaultMetrics.DuplicatesSuppressed.Inc()
}

// UpdateLedgerSize updates the dedup ledger size gauge.
func UpdateLedgerSize(size int) {
	DefaultMetrics.LedgerSize.Set(float64(size))
}

// RecordNotification records an alert dispatch attempt.
func RecordNotification(err error) {
	if err != nil {
		DefaultMetrics.NotificationErrors.Inc()
		return
	}
	DefaultMetrics.NotificationsSent.Inc()
}
