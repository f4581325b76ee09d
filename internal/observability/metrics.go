// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	DocumentsIngested   *prometheus.CounterVec
	LineItemsFlattened  prometheus.Counter
	IngestionErrors     *prometheus.CounterVec
	DuplicateDocuments  prometheus.Counter

	// Aggregation metrics
	AggregationRuns     prometheus.Counter
	AggregationDuration prometheus.Histogram
	ProductGroupsBuilt  prometheus.Gauge
	LineItemsAggregated prometheus.Gauge

	// API metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	StreamClients      prometheus.Gauge
	StreamEventsServed prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
	ReportsGenerated      *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pricewatch"
	}

	return &Metrics{
		// Ingestion metrics
		DocumentsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "documents_ingested_total",
			Help:      "Total number of documents ingested by type",
		}, []string{"type"}),
		LineItemsFlattened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "line_items_flattened_total",
			Help:      "Total number of line items flattened from documents",
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),
		DuplicateDocuments: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicate_documents_total",
			Help:      "Total number of documents rejected as already ingested",
		}),

		// Aggregation metrics
		AggregationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "runs_total",
			Help:      "Total number of aggregation runs",
		}),
		AggregationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "run_duration_seconds",
			Help:      "Aggregation run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ProductGroupsBuilt: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "product_groups",
			Help:      "Number of product groups in the latest aggregation",
		}),
		LineItemsAggregated: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "line_items",
			Help:      "Number of line items in the latest aggregation",
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by path and status",
		}, []string{"path", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Current number of connected WebSocket clients",
		}),
		StreamEventsServed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "stream_events_served_total",
			Help:      "Total number of events broadcast to WebSocket clients",
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
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of the last successful aggregation refresh",
		}),
		ReportsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated by format",
		}, []string{"format"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

var (
	defaultMu        sync.Mutex
	defaultNamespace string
	defaultMetrics   *Metrics
)

// SetDefaultNamespace sets the namespace used by the shared metrics
// instance. Must be called before the first metric is recorded; once the
// instance exists the call has no effect.
func SetDefaultNamespace(namespace string) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMetrics == nil {
		defaultNamespace = namespace
	}
}

// Default returns the shared metrics instance, creating it on first use.
func Default() *Metrics {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMetrics == nil {
		defaultMetrics = NewMetrics(defaultNamespace)
	}
	return defaultMetrics
}

// RecordDocumentIngested increments the documents ingested counter.
func RecordDocumentIngested(docType string) {
	Default().DocumentsIngested.WithLabelValues(docType).Inc()
}

// RecordLineItemsFlattened adds to the flattened line items counter.
func RecordLineItemsFlattened(n int) {
	Default().LineItemsFlattened.Add(float64(n))
}

// RecordIngestionError records an ingestion error.
func RecordIngestionError(errorType string) {
	Default().IngestionErrors.WithLabelValues(errorType).Inc()
}

// RecordDuplicateDocument increments the duplicate documents counter.
func RecordDuplicateDocument() {
	Default().DuplicateDocuments.Inc()
}

// RecordAggregationRun records one aggregation run and its result sizes.
func RecordAggregationRun(durationSeconds float64, groups, lineItems int) {
	Default().AggregationRuns.Inc()
	Default().AggregationDuration.Observe(durationSeconds)
	Default().ProductGroupsBuilt.Set(float64(groups))
	Default().LineItemsAggregated.Set(float64(lineItems))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(path, status string, seconds float64) {
	Default().HTTPRequests.WithLabelValues(path, status).Inc()
	Default().HTTPDuration.WithLabelValues(path).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	Default().DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		Default().DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordReportGenerated increments the reports generated counter.
func RecordReportGenerated(format string) {
	Default().ReportsGenerated.WithLabelValues(format).Inc()
}
