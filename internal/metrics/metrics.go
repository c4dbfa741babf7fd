// Package metrics exposes Prometheus instrumentation for the ingestion pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels, one per terminal state of an ingestion request.
const (
	OutcomePersisted = "persisted"
	OutcomePartial   = "persisted_partial"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics groups the collectors recorded by the ingestor.
type Metrics struct {
	Ingestions    *prometheus.CounterVec
	StepFailures  *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	ExtractedSize prometheus.Histogram

	registry *prometheus.Registry
}

// New registers the collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "document_ingestor",
			Name:      "ingestions_total",
			Help:      "Ingestion requests by terminal outcome and document type.",
		}, []string{"outcome", "document_type"}),
		StepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "document_ingestor",
			Name:      "step_failures_total",
			Help:      "Degraded or fatal failures by pipeline step.",
		}, []string{"step"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "document_ingestor",
			Name:      "ingestion_duration_seconds",
			Help:      "End-to-end ingestion latency by outcome.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		ExtractedSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "document_ingestor",
			Name:      "extracted_text_chars",
			Help:      "Characters of text extracted per document.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
		registry: reg,
	}
	reg.MustRegister(m.Ingestions, m.StepFailures, m.Duration, m.ExtractedSize)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
