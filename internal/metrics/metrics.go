// Package metrics exposes Prometheus collectors for training runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nettrain"

// Training holds the collectors updated by training jobs.
type Training struct {
	Runs      *prometheus.CounterVec
	Epochs    *prometheus.CounterVec
	LastError *prometheus.GaugeVec
	Duration  *prometheus.HistogramVec
	Running   prometheus.Gauge
}

// NewTraining registers the training collectors with reg. A nil reg uses
// the default registerer.
func NewTraining(reg prometheus.Registerer) *Training {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Training{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Training runs by algorithm and final status.",
		}, []string{"algorithm", "status"}),
		Epochs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "epochs_total",
			Help:      "Epochs recorded by the training loop.",
		}, []string{"algorithm"}),
		LastError: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_error",
			Help:      "Most recent training error per job.",
		}, []string{"job_id"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished training runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"algorithm"}),
		Running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Training jobs currently executing.",
		}),
	}
}

// Started marks a job as running.
func (m *Training) Started() { m.Running.Inc() }

// Epoch records one epoch of the given job.
func (m *Training) Epoch(algorithm, jobID string, lastErr float64) {
	m.Epochs.WithLabelValues(algorithm).Inc()
	m.LastError.WithLabelValues(jobID).Set(lastErr)
}

// Finished records the outcome of a run and releases its running slot.
// The job's last-error series is dropped since job IDs are unbounded.
func (m *Training) Finished(algorithm, jobID, status string, d time.Duration) {
	m.Runs.WithLabelValues(algorithm, status).Inc()
	m.Duration.WithLabelValues(algorithm).Observe(d.Seconds())
	m.LastError.DeleteLabelValues(jobID)
	m.Running.Dec()
}
