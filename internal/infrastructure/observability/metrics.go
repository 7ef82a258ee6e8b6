// Package observability provides Prometheus metrics and OpenTelemetry spans
// around the pipeline's external capabilities.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/0xcro3dile/ulcerrag")

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

// Metrics holds the ulcerrag collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	capabilityCalls    *prometheus.CounterVec
	capabilityDuration *prometheus.HistogramVec
	queries            *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	indexChunks        prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		capabilityCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ulcerrag_capability_calls_total",
				Help: "Calls to embedding and generation backends by capability and outcome",
			},
			[]string{"capability", "outcome"},
		),
		capabilityDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ulcerrag_capability_duration_seconds",
				Help:    "Latency of embedding and generation backend calls",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"capability"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ulcerrag_queries_total",
				Help: "Answered questions by outcome",
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ulcerrag_http_requests_total",
				Help: "HTTP requests by path and status code",
			},
			[]string{"path", "code"},
		),
		indexChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ulcerrag_index_chunks",
				Help: "Number of chunks in the index currently serving queries",
			},
		),
	}
	m.registry.MustRegister(
		m.capabilityCalls,
		m.capabilityDuration,
		m.queries,
		m.httpRequests,
		m.indexChunks,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCapability records one backend call.
func (m *Metrics) ObserveCapability(capability string, elapsed time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.capabilityCalls.WithLabelValues(capability, outcome).Inc()
	m.capabilityDuration.WithLabelValues(capability).Observe(elapsed.Seconds())
}

// ObserveQuery records one pipeline run.
func (m *Metrics) ObserveQuery(outcome string) {
	m.queries.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(path string, code int) {
	m.httpRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

// SetIndexChunks publishes the size of the serving index.
func (m *Metrics) SetIndexChunks(n int) {
	m.indexChunks.Set(float64(n))
}
