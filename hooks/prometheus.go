package hooks

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// PrometheusMetrics records pipeline observations in a private registry. A
// one-shot converter has no scrape endpoint, so the registry is written to a
// node-exporter textfile at the end of a run.
type PrometheusMetrics struct {
	registry     *prometheus.Registry
	stepDuration *prometheus.HistogramVec
	stepErrors   *prometheus.CounterVec
	bytesWritten prometheus.Counter
}

// NewPrometheusMetrics registers the zune collectors on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &PrometheusMetrics{
		registry: registry,
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zune_step_duration_seconds",
			Help:    "Duration of decode, operation and encode steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "step"}),
		stepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zune_step_errors_total",
			Help: "Failed steps by step name and error category.",
		}, []string{"kind", "step", "category"}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zune_encoded_bytes_total",
			Help: "Total encoded bytes written to all targets.",
		}),
	}
	registry.MustRegister(m.stepDuration, m.stepErrors, m.bytesWritten)
	return m
}

// Registry exposes the underlying registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

func (m *PrometheusMetrics) RecordProcessingTime(stepName string, d interface{ Seconds() float64 }) {
	kind, step := splitStep(stepName)
	m.stepDuration.WithLabelValues(kind, step).Observe(d.Seconds())
}

func (m *PrometheusMetrics) RecordThroughput(bytes int64) {
	if bytes > 0 {
		m.bytesWritten.Add(float64(bytes))
	}
}

func (m *PrometheusMetrics) RecordError(stepName, category string) {
	kind, step := splitStep(stepName)
	m.stepErrors.WithLabelValues(kind, step, category).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
func (m *PrometheusMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// splitStep turns "encode:png" into ("encode", "png") and a bare operation
// name into ("operation", name).
func splitStep(name string) (string, string) {
	if kind, step, ok := strings.Cut(name, ":"); ok {
		return kind, step
	}
	return "operation", name
}
