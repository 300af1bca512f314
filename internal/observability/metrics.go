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
	// Creation metrics
	CreationsStarted   prometheus.Counter
	CreationAttempts   *prometheus.CounterVec
	CreationDuration   prometheus.Histogram
	GroupsConfirmed    *prometheus.CounterVec
	EndpointFailovers  prometheus.Counter
	RateLimitRejections prometheus.Counter

	// Readiness metrics
	ReadinessChecks *prometheus.CounterVec

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Metadata metrics
	BlobUploads      *prometheus.CounterVec
	MetadataOutcomes *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_token_forge"
	}

	return &Metrics{
		CreationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "creation",
			Name:      "sequences_started_total",
			Help:      "Total number of creation sequences started",
		}),
		CreationAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "creation",
			Name:      "attempts_total",
			Help:      "Total number of creation attempts by outcome",
		}, []string{"outcome", "error_kind"}),
		CreationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "creation",
			Name:      "sequence_duration_seconds",
			Help:      "Duration of the full creation sequence",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		GroupsConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "creation",
			Name:      "groups_confirmed_total",
			Help:      "Total number of confirmed transaction groups by stage",
		}, []string{"group"}),
		EndpointFailovers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "failovers_total",
			Help:      "Total number of mid-sequence endpoint switches",
		}),
		RateLimitRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "readiness",
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
		ReadinessChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "readiness",
			Name:      "checks_total",
			Help:      "Total number of readiness checks by result",
		}, []string{"result"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Latency of chain RPC calls by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Total number of failed chain RPC calls by method",
		}, []string{"method"}),
		BlobUploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "blob_uploads_total",
			Help:      "Total number of blob uploads by status",
		}, []string{"status"}),
		MetadataOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "stage_outcomes_total",
			Help:      "Total number of metadata stage outcomes by status",
		}, []string{"status"}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of failed database queries",
		}, []string{"database", "operation"}),
	}
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCreationStarted increments the sequences started counter.
func RecordCreationStarted() {
	DefaultMetrics.CreationsStarted.Inc()
}

// RecordCreationAttempt records one attempt with its outcome.
func RecordCreationAttempt(outcome, errorKind string) {
	DefaultMetrics.CreationAttempts.WithLabelValues(outcome, errorKind).Inc()
}

// RecordCreationDuration records the wall time of a full sequence.
func RecordCreationDuration(seconds float64) {
	DefaultMetrics.CreationDuration.Observe(seconds)
}

// RecordGroupConfirmed counts one confirmed transaction group.
func RecordGroupConfirmed(group string) {
	DefaultMetrics.GroupsConfirmed.WithLabelValues(group).Inc()
}

// RecordEndpointFailover counts a mid-sequence endpoint switch.
func RecordEndpointFailover() {
	DefaultMetrics.EndpointFailovers.Inc()
}

// RecordRateLimitRejection counts a rate limiter denial.
func RecordRateLimitRejection() {
	DefaultMetrics.RateLimitRejections.Inc()
}

// RecordReadinessCheck counts one readiness evaluation.
func RecordReadinessCheck(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	DefaultMetrics.ReadinessChecks.WithLabelValues(result).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError counts one failed RPC call.
func RecordRPCError(method string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
}

// RecordBlobUpload counts one blob upload.
func RecordBlobUpload(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	DefaultMetrics.BlobUploads.WithLabelValues(status).Inc()
}

// RecordMetadataOutcome counts one metadata stage completion.
func RecordMetadataOutcome(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	DefaultMetrics.MetadataOutcomes.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
