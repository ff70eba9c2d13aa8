package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orderdesk"

// Job run outcomes.
const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// JobMetrics tracks reconciler job runs and lock contention between instances.
type JobMetrics struct {
	runs       *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	contention prometheus.Counter
}

// NewJobMetrics registers the job metrics. A nil registerer yields a no-op.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	m := &JobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "job_runs_total",
			Help:      "Reconciler job runs by outcome.",
		}, []string{"job", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "job_duration_seconds",
			Help:      "Wall time of reconciler job runs.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 15, 30, 60},
		}, []string{"job"}),
		contention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "cycles_skipped_total",
			Help:      "Cycles skipped because another instance held the lock.",
		}),
	}
	reg.MustRegister(m.runs, m.latency, m.contention)
	return m
}

// ObserveRun records one job run. A nil err counts as success.
func (m *JobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	outcome := JobSucceeded
	if err != nil {
		outcome = JobFailed
	}
	job = normalizeLabel(job)
	m.runs.WithLabelValues(job, outcome).Inc()
	m.latency.WithLabelValues(job).Observe(took.Seconds())
}

// IncSkippedCycle counts a cycle lost to lock contention.
func (m *JobMetrics) IncSkippedCycle() {
	if m == nil || m.contention == nil {
		return
	}
	m.contention.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
