// Package metrics provides Prometheus metrics for the shop assistant.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Context engine
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	PipelineRunsTotal  *prometheus.CounterVec

	// Persistence
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Interactions
	InteractionsTotal *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.ExtractionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_assistant_context_extractions_total",
			Help: "Context extraction cycles by result",
		},
		[]string{"result"},
	)

	m.ExtractionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shop_assistant_context_extraction_duration_seconds",
			Help:    "Duration of the structured extraction call in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32},
		},
	)

	m.PipelineRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_assistant_context_pipeline_runs_total",
			Help: "Context pipeline runs by status",
		},
		[]string{"status"},
	)

	m.StoreOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_assistant_store_operations_total",
			Help: "Conversation store operations",
		},
		[]string{"operation", "status"},
	)

	m.StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_assistant_store_operation_duration_seconds",
			Help:    "Duration of conversation store operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	m.InteractionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_assistant_product_interactions_total",
			Help: "Recorded product interactions by action and status",
		},
		[]string{"action", "status"},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_assistant_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "code"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_assistant_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordExtraction records the outcome label and, when a call was made, its latency.
func (m *Metrics) RecordExtraction(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(result).Inc()
	if duration > 0 {
		m.ExtractionDuration.Observe(duration.Seconds())
	}
}

func (m *Metrics) RecordPipelineRun(status string) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordStoreOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status(err)).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordInteraction(action string, err error) {
	if m == nil {
		return
	}
	m.InteractionsTotal.WithLabelValues(action, status(err)).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
