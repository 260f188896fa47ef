package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes queue composition and task outcomes to Prometheus. A nil
// *Metrics is valid and records nothing, which keeps tests lightweight.
type Metrics struct {
	queueDepth     *prometheus.GaugeVec
	tasksCompleted prometheus.Counter
	tasksFailed    prometheus.Counter
	reconnects     prometheus.Counter
}

// NewMetrics registers the scheduler's collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chronicle",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of tasks in the queue by status.",
		}, []string{"status"}),
		tasksCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chronicle",
			Subsystem: "scheduler",
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks that reached complete.",
		}),
		tasksFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chronicle",
			Subsystem: "scheduler",
			Name:      "tasks_failed_total",
			Help:      "Total number of tasks that reached error.",
		}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chronicle",
			Subsystem: "scheduler",
			Name:      "pool_reconnects_total",
			Help:      "Total number of automatic worker pool rebuilds.",
		}),
	}
}

func (m *Metrics) observeStats(s Stats) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(string(StatusQueued)).Set(float64(s.Queued))
	m.queueDepth.WithLabelValues(string(StatusRunning)).Set(float64(s.Running))
	m.queueDepth.WithLabelValues(string(StatusComplete)).Set(float64(s.Completed))
	m.queueDepth.WithLabelValues(string(StatusError)).Set(float64(s.Errored))
}

func (m *Metrics) taskCompleted() {
	if m == nil {
		return
	}
	m.tasksCompleted.Inc()
}

func (m *Metrics) taskFailed() {
	if m == nil {
		return
	}
	m.tasksFailed.Inc()
}

func (m *Metrics) reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}
