// Package telemetry provides the metrics and tracing used by migration runs.
package telemetry

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "automigrate"

// Outcomes recorded by Metrics.RecordRun.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeDisabled = "disabled"
	OutcomeFailed   = "failed"
)

// Metrics holds the Prometheus collectors of a migration run on a private
// registry. A nil *Metrics is valid and records nothing.
//
// Example usage:
//
//	metrics := telemetry.NewMetrics()
//	metrics.RecordRun(telemetry.OutcomeApplied, time.Since(start))
//	if err := metrics.WriteTextfile("/var/lib/node_exporter/automigrate.prom"); err != nil {
//		log.Fatal(err)
//	}
type Metrics struct {
	registry *prometheus.Registry

	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	Operations  *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Migration runs by outcome",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of migration runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Schema operations applied by kind",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(m.Runs, m.RunDuration, m.Operations)
	return m
}

// Registry exposes the private registry, e.g. for promhttp or tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRun counts a finished run and observes its duration.
func (m *Metrics) RecordRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}

	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// RecordOperation counts one applied operation of the given kind.
func (m *Metrics) RecordOperation(kind string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node_exporter textfile collector. The file is replaced
// atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}

	return errors.Wrapf(prometheus.WriteToTextfile(path, m.registry), "failed to write metrics to %s", path)
}
