package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kynesis/loomrun/core/asyncscope"
	"github.com/kynesis/loomrun/core/metrics"
)

// asyncScopeMetrics implements asyncscope.Metrics using Prometheus.
type asyncScopeMetrics struct {
	tasksForkedTotal    *prometheus.CounterVec
	taskDuration        *prometheus.HistogramVec
	tasksCompletedTotal *prometheus.CounterVec
	completionQueueSize *prometheus.GaugeVec
}

// NewAsyncScopeMetrics creates a new Prometheus implementation of
// asyncscope.Metrics.
func NewAsyncScopeMetrics(reg prometheus.Registerer) asyncscope.Metrics {
	m := &asyncScopeMetrics{
		tasksForkedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loomrun_asyncscope_tasks_forked_total",
			Help: "Total number of tasks forked into an async scope",
		}, []string{"scope"}),

		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loomrun_asyncscope_task_duration_seconds",
			Help:    "Task computation time in seconds",
			Buckets: defaultBuckets,
		}, []string{"scope"}),

		tasksCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loomrun_asyncscope_tasks_completed_total",
			Help: "Total number of tasks completed, by result state",
		}, []string{"scope", "state"}),

		completionQueueSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loomrun_asyncscope_completion_queue_depth",
			Help: "Current depth of the completion queue awaiting consumption",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		m.tasksForkedTotal,
		m.taskDuration,
		m.tasksCompletedTotal,
		m.completionQueueSize,
	)

	return m
}

func (m *asyncScopeMetrics) TaskForked(scopeLabel string) {
	m.tasksForkedTotal.WithLabelValues(scopeLabel).Inc()
}

func (m *asyncScopeMetrics) TaskDuration(scopeLabel string) metrics.Timer {
	return newTimer(m.taskDuration.WithLabelValues(scopeLabel))
}

func (m *asyncScopeMetrics) TaskCompleted(scopeLabel string, state asyncscope.ResultState) {
	m.tasksCompletedTotal.WithLabelValues(scopeLabel, state.String()).Inc()
}

func (m *asyncScopeMetrics) CompletionQueueDepth(scopeLabel string, depth int) {
	m.completionQueueSize.WithLabelValues(scopeLabel).Set(float64(depth))
}

var _ asyncscope.Metrics = (*asyncScopeMetrics)(nil)
