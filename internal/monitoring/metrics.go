// Package monitoring exposes pipeline metrics and vendor snapshots.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments recorded by the pipeline. A nil
// *Metrics records nothing.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Extractions *prometheus.CounterVec
	RunDuration prometheus.Histogram
	Scores      prometheus.Histogram
}

// NewMetrics registers the pipeline instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vcms_pipeline_runs_total",
				Help: "Total number of pipeline runs by terminal state",
			},
			[]string{"state"},
		),
		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vcms_extractions_total",
				Help: "Total number of extraction outcomes by status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vcms_pipeline_run_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		Scores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vcms_vendor_score",
				Help:    "Distribution of persisted vendor scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(state).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// ObserveExtraction records an extraction outcome.
func (m *Metrics) ObserveExtraction(status string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(status).Inc()
}

// ObserveScore records the score of a persisted vendor.
func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.Scores.Observe(float64(score))
}
