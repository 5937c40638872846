package asyncscope

import "github.com/kynesis/loomrun/core/metrics"

// Metrics is the instrumentation surface an AsyncScope reports against,
// following core/actor.Metrics and, beneath it, core/actor/v2's
// ActorMetrics/NopActorMetrics shape.
type Metrics interface {
	TaskForked(scopeLabel string)
	TaskDuration(scopeLabel string) metrics.Timer
	TaskCompleted(scopeLabel string, state ResultState)
	CompletionQueueDepth(scopeLabel string, depth int)
}

type nopMetrics struct{}

func (nopMetrics) TaskForked(string)                      {}
func (nopMetrics) TaskDuration(string) metrics.Timer      { return metrics.NopTimer() }
func (nopMetrics) TaskCompleted(string, ResultState)      {}
func (nopMetrics) CompletionQueueDepth(string, int)       {}

// NopMetrics returns a Metrics implementation that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }
