package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kynesis/loomrun/core/actor"
	"github.com/kynesis/loomrun/core/metrics"
)

// actorMetrics implements actor.Metrics using Prometheus, following the
// teacher's core/actor/v2 actorMetrics shape.
type actorMetrics struct {
	messageDuration *prometheus.HistogramVec
	messagesTotal   *prometheus.CounterVec
	mailboxDepth    *prometheus.GaugeVec
	signalsTotal    *prometheus.CounterVec
	restartsTotal   *prometheus.CounterVec
}

// NewActorMetrics creates a new Prometheus implementation of actor.Metrics.
func NewActorMetrics(reg prometheus.Registerer) actor.Metrics {
	m := &actorMetrics{
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loomrun_actor_message_duration_seconds",
			Help:    "Message handling time in seconds",
			Buckets: defaultBuckets,
		}, []string{"actor"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loomrun_actor_messages_total",
			Help: "Total number of messages processed",
		}, []string{"actor", "success"}),

		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loomrun_actor_mailbox_depth",
			Help: "Current mailbox queue depth",
		}, []string{"actor"}),

		signalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loomrun_actor_signals_total",
			Help: "Total number of signals received",
		}, []string{"actor", "kind"}),

		restartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loomrun_actor_restarts_total",
			Help: "Total number of times an actor was restarted from a signal handler",
		}, []string{"actor"}),
	}

	reg.MustRegister(
		m.messageDuration,
		m.messagesTotal,
		m.mailboxDepth,
		m.signalsTotal,
		m.restartsTotal,
	)

	return m
}

func (m *actorMetrics) MessageDuration(actorName string) metrics.Timer {
	return newTimer(m.messageDuration.WithLabelValues(actorName))
}

func (m *actorMetrics) MessageProcessed(actorName string, success bool) {
	m.messagesTotal.WithLabelValues(actorName, boolToStr(success)).Inc()
}

func (m *actorMetrics) MailboxDepth(actorName string, depth int) {
	m.mailboxDepth.WithLabelValues(actorName).Set(float64(depth))
}

func (m *actorMetrics) SignalReceived(actorName string, signalKind string) {
	m.signalsTotal.WithLabelValues(actorName, signalKind).Inc()
}

func (m *actorMetrics) Restarted(actorName string) {
	m.restartsTotal.WithLabelValues(actorName).Inc()
}

var _ actor.Metrics = (*actorMetrics)(nil)
