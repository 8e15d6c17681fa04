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
	// Webhook metrics
	DeliveriesReceived  prometheus.Counter
	DeliveriesRejected  *prometheus.CounterVec
	DuplicateDeliveries prometheus.Counter

	// Pipeline metrics
	PaymentsDecided  *prometheus.CounterVec
	PipelineDuration prometheus.Histogram

	// Policy metrics
	PolicyViolations *prometheus.CounterVec
	RiskScore        prometheus.Histogram

	// Chain metrics
	ChainConfirmLatency prometheus.Histogram
	ChainConfirmErrors  prometheus.Counter

	// Notification metrics
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastDeliveryProcessed prometheus.Gauge
	UptimeSeconds         prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "payment_gateway"
	}

	return &Metrics{
		// Webhook metrics
		DeliveriesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_received_total",
			Help:      "Total number of webhook deliveries received",
		}),
		DeliveriesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_rejected_total",
			Help:      "Total number of webhook deliveries rejected by reason",
		}, []string{"reason"}),
		DuplicateDeliveries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "duplicate_deliveries_total",
			Help:      "Total number of redelivered webhooks resolved idempotently",
		}),

		// Pipeline metrics
		PaymentsDecided: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "payments_decided_total",
			Help:      "Total number of payments decided by final status",
		}, []string{"status"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end webhook processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Policy metrics
		PolicyViolations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "violations_total",
			Help:      "Total number of policy violations by type",
		}, []string{"type"}),
		RiskScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "risk_score",
			Help:      "Risk score distribution across evaluated payments",
			Buckets:   []float64{0, 30, 60, 80, 100, 150, 200, 300},
		}),

		// Chain metrics
		ChainConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "confirm_latency_seconds",
			Help:      "Chain confirmation call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ChainConfirmErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "confirm_errors_total",
			Help:      "Total number of chain confirmation RPC failures",
		}),

		// Notification metrics
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of status notifications sent",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failed_total",
			Help:      "Total number of status notifications that failed",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastDeliveryProcessed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_delivery_processed_timestamp",
			Help:      "Unix timestamp of last processed webhook delivery",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDeliveryReceived increments the deliveries received counter.
func RecordDeliveryReceived() {
	DefaultMetrics.DeliveriesReceived.Inc()
}

// RecordDeliveryRejected records a rejected delivery by reason.
func RecordDeliveryRejected(reason string) {
	DefaultMetrics.DeliveriesRejected.WithLabelValues(reason).Inc()
}

// RecordDuplicateDelivery increments the duplicate deliveries counter.
func RecordDuplicateDelivery() {
	DefaultMetrics.DuplicateDeliveries.Inc()
}

// RecordPaymentDecided records a decided payment by final status.
func RecordPaymentDecided(status string) {
	DefaultMetrics.PaymentsDecided.WithLabelValues(status).Inc()
}

// RecordPipelineDuration records end-to-end processing duration.
func RecordPipelineDuration(seconds float64) {
	DefaultMetrics.PipelineDuration.Observe(seconds)
	DefaultMetrics.LastDeliveryProcessed.SetToCurrentTime()
}

// RecordPolicyViolation records a policy violation by type.
func RecordPolicyViolation(violationType string) {
	DefaultMetrics.PolicyViolations.WithLabelValues(violationType).Inc()
}

// RecordRiskScore records the risk score of an evaluated payment.
func RecordRiskScore(score int) {
	DefaultMetrics.RiskScore.Observe(float64(score))
}

// RecordChainConfirm records chain confirmation latency and outcome.
func RecordChainConfirm(seconds float64, failed bool) {
	DefaultMetrics.ChainConfirmLatency.Observe(seconds)
	if failed {
		DefaultMetrics.ChainConfirmErrors.Inc()
	}
}

// RecordNotification records a notification attempt.
func RecordNotification(err error) {
	if err != nil {
		DefaultMetrics.NotificationsFailed.Inc()
		return
	}
	DefaultMetrics.NotificationsSent.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
