package reconciler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/giantswarm/locksmith/internal/taskqueue"
)

// Metrics are the counters the engine and the task queues report into. A
// nil *Metrics is valid and records nothing.
type Metrics struct {
	corrections   *prometheus.CounterVec
	titleReverts  *prometheus.CounterVec
	cooldowns     prometheus.Counter
	passes        prometheus.Counter
	taskDurations *prometheus.HistogramVec
	taskErrors    *prometheus.CounterVec
}

// NewMetrics registers the engine's collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		corrections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "locksmith_nickname_corrections_total",
			Help: "Nickname corrections by result",
		}, []string{"result"}),
		titleReverts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "locksmith_title_reverts_total",
			Help: "Title reverts by result",
		}, []string{"result"}),
		cooldowns: f.NewCounter(prometheus.CounterOpts{
			Name: "locksmith_cooldowns_started_total",
			Help: "Times a target hit the correction limit",
		}),
		passes: f.NewCounter(prometheus.CounterOpts{
			Name: "locksmith_reconcile_passes_total",
			Help: "Completed reconciliation passes",
		}),
		taskDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "locksmith_task_duration_seconds",
			Help:    "Task run time including pacing",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
		}, []string{"kind"}),
		taskErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "locksmith_task_errors_total",
			Help: "Tasks that returned an error",
		}, []string{"kind"}),
	}
}

func (m *Metrics) correction(result string) {
	if m != nil {
		m.corrections.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) titleRevert(result string) {
	if m != nil {
		m.titleReverts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) cooldownStarted() {
	if m != nil {
		m.cooldowns.Inc()
	}
}

func (m *Metrics) passCompleted() {
	if m != nil {
		m.passes.Inc()
	}
}

// TaskStarted implements taskqueue.Observer.
func (m *Metrics) TaskStarted(taskqueue.Task) {}

// TaskFinished implements taskqueue.Observer.
func (m *Metrics) TaskFinished(task taskqueue.Task, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.taskDurations.WithLabelValues(string(task.Kind)).Observe(elapsed.Seconds())
	if err != nil {
		m.taskErrors.WithLabelValues(string(task.Kind)).Inc()
	}
}

// Load reports in-flight work. *admission.Limiter satisfies it.
type Load interface {
	InFlight() int
	Waiting() int
}

// Backlog reports queued tasks. *taskqueue.Queues satisfies it.
type Backlog interface {
	Total() int
}

// RegisterStateGauges exposes the engine summary and the admission state as
// gauges read at scrape time.
func RegisterStateGauges(reg prometheus.Registerer, e *Engine, load Load, backlog Backlog) {
	f := promauto.With(reg)
	gauge := func(name, help string, read func() float64) {
		f.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, read)
	}

	gauge("locksmith_targets", "Targets in the lock store", func() float64 {
		return float64(e.Summary().Targets)
	})
	gauge("locksmith_targets_enabled", "Targets with the nickname lock on", func() float64 {
		return float64(e.Summary().Enabled)
	})
	gauge("locksmith_targets_in_cooldown", "Targets cooling down", func() float64 {
		return float64(e.Summary().InCooldown)
	})
	gauge("locksmith_titles_diverged", "Targets whose title differs from the lock", func() float64 {
		return float64(e.Summary().TitlesDiverged)
	})
	gauge("locksmith_session_attached", "1 while a remote session is live", func() float64 {
		if e.Summary().Attached {
			return 1
		}
		return 0
	})
	gauge("locksmith_tasks_in_flight", "Tasks holding an admission slot", func() float64 {
		return float64(load.InFlight())
	})
	gauge("locksmith_tasks_waiting", "Tasks waiting for an admission slot", func() float64 {
		return float64(load.Waiting())
	})
	gauge("locksmith_tasks_queued", "Tasks queued across all targets", func() float64 {
		return float64(backlog.Total())
	})
}
