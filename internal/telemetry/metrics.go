package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the instrument set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsgate",
		Name:      "invocations_total",
		Help:      "Tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})
	registry.MustRegister(invocations)

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "opsgate",
		Name:      "invocation_duration_seconds",
		Help:      "End-to-end tool invocation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})
	registry.MustRegister(duration)

	return &Metrics{
		registry:    registry,
		invocations: invocations,
		duration:    duration,
	}
}

// ObserveInvocation records one completed invocation.
func (m *Metrics) ObserveInvocation(tool, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(seconds)
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
