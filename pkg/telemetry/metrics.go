package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects counters and histograms for orchestrator workflows.
type Metrics struct {
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	provisions       *prometheus.CounterVec
	teardowns        *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "launchforge",
				Name:      "provider_calls_total",
				Help:      "Total provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "launchforge",
				Name:      "provider_call_duration_seconds",
				Help:      "Duration of provider calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		provisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "launchforge",
				Name:      "provisions_total",
				Help:      "Total project provisioning runs by outcome",
			},
			[]string{"outcome"},
		),
		teardowns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "launchforge",
				Name:      "teardowns_total",
				Help:      "Total teardown runs by resource kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}

	registry.MustRegister(m.providerCalls, m.providerDuration, m.provisions, m.teardowns)
	return m
}

// ObserveProviderCall records one provider call.
func (m *Metrics) ObserveProviderCall(provider string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
	m.providerDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveProvision records one provisioning run by outcome.
func (m *Metrics) ObserveProvision(outcome string) {
	m.provisions.WithLabelValues(outcome).Inc()
}

// ObserveTeardown records one teardown run. Cleanup is best-effort, so the
// outcome may be "partial" in addition to "success" and "failure".
func (m *Metrics) ObserveTeardown(kind, outcome string) {
	m.teardowns.WithLabelValues(kind, outcome).Inc()
}

// Registry exposes the underlying registry for scraping or test inspection.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
