// Package metrics exports scheduler and difficulty activity to Prometheus.
//
// A [Collector] is both a [scheduler.Observer] and a [director.DifficultySubscriber], so
// one value covers the job pipeline and the configuration it produces. All metrics are
// registered on the Registerer passed to [New], which keeps tests isolated from the global
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rickchristie/director"
	"github.com/rickchristie/director/decoder"
	"github.com/rickchristie/director/scheduler"
)

const namespace = "director"

// Job outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Collector holds every director metric.
type Collector struct {
	JobsEnqueued   *prometheus.CounterVec
	JobsRejected   *prometheus.CounterVec
	JobsStarted    prometheus.Counter
	JobsFinished   *prometheus.CounterVec
	JobsDispatched prometheus.Counter
	JobDuration    prometheus.Histogram
	JobWait        prometheus.Histogram
	ActiveJobs     prometheus.Gauge
	PendingJobs    prometheus.Gauge

	DifficultyChanges *prometheus.CounterVec
	DifficultyLevel   *prometheus.GaugeVec
	AimSpreadFine     prometheus.Gauge
	DurationSeconds   prometheus.Gauge
}

// New creates a Collector registered on reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		JobsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_enqueued_total",
			Help:      "Jobs admitted to the pending set, by requesting component and priority.",
		}, []string{"component", "priority"}),
		JobsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_rejected_total",
			Help:      "Jobs that never reached a worker, by reason.",
		}, []string{"reason"}),
		JobsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_started_total",
			Help:      "Jobs that took a worker slot.",
		}),
		JobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_finished_total",
			Help:      "Jobs whose inference returned, by outcome.",
		}, []string{"outcome"}),
		JobsDispatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "jobs_dispatched_total",
			Help:      "Completion callbacks delivered to the consumer.",
		}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Backend call duration.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		JobWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_wait_seconds",
			Help:      "Time from admission to taking a worker slot.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		}),
		ActiveJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "active_jobs",
			Help:      "Jobs currently holding a worker slot.",
		}),
		PendingJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pending_jobs",
			Help:      "Jobs waiting for a worker slot.",
		}),
		DifficultyChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "difficulty",
			Name:      "changes_total",
			Help:      "Difficulty notifications, by cause.",
		}, []string{"cause"}),
		DifficultyLevel: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "difficulty",
			Name:      "level",
			Help:      "Current difficulty level, by field.",
		}, []string{"field"}),
		AimSpreadFine: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "difficulty",
			Name:      "aim_spread_fine",
			Help:      "Current fine aim spread offset.",
		}),
		DurationSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "difficulty",
			Name:      "duration_seconds",
			Help:      "Duration of the current configuration; 0 means until the next change.",
		}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// JobEnqueued implements scheduler.Observer.
func (c *Collector) JobEnqueued(job *director.Job) {
	c.JobsEnqueued.WithLabelValues(job.ID, job.Priority.String()).Inc()
}

// PendingChanged implements scheduler.Observer.
func (c *Collector) PendingChanged(pending int) {
	c.PendingJobs.Set(float64(pending))
}

// ActiveChanged implements scheduler.Observer.
func (c *Collector) ActiveChanged(active int) {
	c.ActiveJobs.Set(float64(active))
}

// JobRejected implements scheduler.Observer.
func (c *Collector) JobRejected(reason scheduler.RejectReason) {
	c.JobsRejected.WithLabelValues(string(reason)).Inc()
}

// JobStarted implements scheduler.Observer.
func (c *Collector) JobStarted(job *director.Job) {
	c.JobsStarted.Inc()
	if !job.EnqueueTime.IsZero() {
		c.JobWait.Observe(max(0, time.Since(job.EnqueueTime).Seconds()))
	}
}

// JobFinished implements scheduler.Observer.
func (c *Collector) JobFinished(job *director.Job, elapsed time.Duration, err error) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
	case job.Result == "":
		outcome = OutcomeEmpty
	}
	c.JobsFinished.WithLabelValues(outcome).Inc()
	c.JobDuration.Observe(elapsed.Seconds())
}

// JobDispatched implements scheduler.Observer.
func (c *Collector) JobDispatched(*director.Job) {
	c.JobsDispatched.Inc()
}

// OnDifficultyChanged implements director.DifficultySubscriber.
func (c *Collector) OnDifficultyChanged(e *director.DifficultyChangedEvent) {
	c.DifficultyChanges.WithLabelValues(e.Cause.String()).Inc()

	d := e.Difficulty
	c.DifficultyLevel.WithLabelValues(decoder.ArgAimSpreadLevel).Set(float64(d.AimSpreadLevel))
	c.DifficultyLevel.WithLabelValues(decoder.ArgReactionLevel).Set(float64(d.ReactionLevel))
	c.DifficultyLevel.WithLabelValues(decoder.ArgAggressionLevel).Set(float64(d.AggressionLevel))
	c.DifficultyLevel.WithLabelValues(decoder.ArgPeekLevel).Set(float64(d.PeekLevel))
	c.AimSpreadFine.Set(d.AimSpreadFine)
	c.DurationSeconds.Set(float64(d.DurationS))
}

// Compile-time checks.
var (
	_ scheduler.Observer            = (*Collector)(nil)
	_ director.DifficultySubscriber = (*Collector)(nil)
)
