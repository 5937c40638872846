// Package prometheus provides Prometheus implementations of core/actor's
// and core/asyncscope's abstract Metrics interfaces.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kynesis/loomrun/core/metrics"
)

// timer wraps a Prometheus histogram to implement the Timer interface.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// AllMetrics holds Prometheus implementations for the actor runtime and the
// async scope. Use this to wire both up against one registry at once.
type AllMetrics struct {
	Actor      *actorMetrics
	AsyncScope *asyncScopeMetrics
}

// NewAllMetrics creates Prometheus metrics for both pillars.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Actor:      NewActorMetrics(reg).(*actorMetrics),
		AsyncScope: NewAsyncScopeMetrics(reg).(*asyncScopeMetrics),
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
