// Package metrics exposes the Prometheus collectors for carchat on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carchat"

// Metrics groups the collectors and their registry
type Metrics struct {
	registry *prometheus.Registry

	replies       *prometheus.CounterVec
	modelCalls    *prometheus.CounterVec
	modelLatency  *prometheus.HistogramVec
	fallbackLevel prometheus.Histogram
}

// New builds the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies sent, by reply kind.",
		}, []string{"kind"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Language model calls, by operation and status.",
		}, []string{"op", "status"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_seconds",
			Help:      "Language model call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"op"}),
		fallbackLevel: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_fallback_level",
			Help:      "Index of the filter combination that produced the result.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256},
		}),
	}
	reg.MustRegister(
		m.replies, m.modelCalls, m.modelLatency, m.fallbackLevel,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Reply counts one reply of the given kind
func (m *Metrics) Reply(kind string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(kind).Inc()
}

// ModelCall records one model call
func (m *Metrics) ModelCall(op, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(op, status).Inc()
	m.modelLatency.WithLabelValues(op).Observe(took.Seconds())
}

// FallbackLevel records the winning combination index of a search
func (m *Metrics) FallbackLevel(level int) {
	if m == nil {
		return
	}
	m.fallbackLevel.Observe(float64(level))
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
