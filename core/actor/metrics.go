package actor

import "github.com/kynesis/loomrun/core/metrics"

// Metrics is the instrumentation surface the runtime reports against.
// Concrete backends (adapters/prometheus) implement this; NopMetrics is
// the zero-configuration default, following core/actor/v2's ActorMetrics.
type Metrics interface {
	MessageDuration(actorName string) metrics.Timer
	MessageProcessed(actorName string, success bool)
	MailboxDepth(actorName string, depth int)
	SignalReceived(actorName string, signalKind string)
	Restarted(actorName string)
}

type nopMetrics struct{}

func (nopMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) MessageProcessed(string, bool)        {}
func (nopMetrics) MailboxDepth(string, int)             {}
func (nopMetrics) SignalReceived(string, string)        {}
func (nopMetrics) Restarted(string)                     {}

// NopMetrics returns a Metrics implementation that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }
