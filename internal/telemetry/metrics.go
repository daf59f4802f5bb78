package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushJob = "storecheck"

// Metrics records step and run outcomes on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

// NewMetrics registers the storecheck collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storecheck",
				Name:      "steps_total",
				Help:      "Total number of scenario steps by outcome",
			},
			[]string{"step", "status"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "storecheck",
				Name:      "step_duration_seconds",
				Help:      "Scenario step duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"step"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "storecheck",
				Name:      "runs_total",
				Help:      "Total number of scenario runs by outcome",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "storecheck",
				Name:      "run_duration_seconds",
				Help:      "Scenario run duration in seconds",
				Buckets:   prometheus.LinearBuckets(5, 5, 12),
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStep records one finished step.
func (m *Metrics) ObserveStep(step, status string, d time.Duration) {
	m.steps.WithLabelValues(step, status).Inc()
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

// Push sends the registry to a Pushgateway at url, grouped by run id.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	err := push.New(url, pushJob).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
