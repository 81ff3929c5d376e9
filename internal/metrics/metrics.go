// Package metrics counts pipeline outcomes for one run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Email outcome labels.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Metrics holds the collectors of a run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Emails by final state
	EmailsTotal *prometheus.CounterVec

	// Failures by error kind (unparseable, extraction)
	FailuresTotal *prometheus.CounterVec

	// Model call latency in seconds
	ModelLatency *prometheus.HistogramVec

	// Rows appended to the output table
	RowsAppended prometheus.Counter
}

// New registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EmailsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterx_emails_total",
				Help: "Emails processed, by final status",
			},
			[]string{"status"}, // status: succeeded, failed
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rosterx_failures_total",
				Help: "Per-email failures, by kind",
			},
			[]string{"kind"},
		),
		ModelLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rosterx_model_call_duration_seconds",
				Help:    "Extraction model call latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"provider", "status"},
		),
		RowsAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "rosterx_rows_appended_total",
			Help: "Rows appended to the output table",
		}),
	}
}

// RecordEmail counts one finished email.
func (m *Metrics) RecordEmail(status string) {
	if m == nil {
		return
	}
	m.EmailsTotal.WithLabelValues(status).Inc()
}

// RecordFailure counts one per-email failure.
func (m *Metrics) RecordFailure(kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(kind).Inc()
}

// RecordModelCall observes one model call.
func (m *Metrics) RecordModelCall(provider string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ModelLatency.WithLabelValues(provider, status).Observe(d.Seconds())
}

// RecordRow counts one appended row.
func (m *Metrics) RecordRow() {
	if m == nil {
		return
	}
	m.RowsAppended.Inc()
}

// WriteTextfile dumps all collectors in the text exposition format, for the
// node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
