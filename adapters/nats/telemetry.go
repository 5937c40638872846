package nats

import (
	"encoding/json"
	"log/slog"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/kynesis/loomrun/core/actor"
)

// LifecycleEvent is one shutdown or panic event mirrored to the telemetry
// subject. It is a side-channel copy of what actor signal handlers already
// observe directly, not transport: actors never communicate across
// processes through this.
type LifecycleEvent struct {
	Actor string    `json:"actor"`
	Kind  string    `json:"kind"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// TelemetrySink publishes LifecycleEvents to a JetStream subject. Build one
// with NewTelemetrySink, then register Handler on every actor whose
// lifecycle should be mirrored: `a.OnSignal(sink.Handler())`.
type TelemetrySink struct {
	js      natsgo.JetStreamContext
	subject string
	log     *slog.Logger
}

// NewTelemetrySink connects via connect (typically ReuseConnection-wrapped
// so multiple sinks/consumers share one underlying *nats.Conn) and binds a
// JetStream context publishing to subject. The returned closeFunc releases
// the connection lease.
func NewTelemetrySink(connect Connector, subject string, log *slog.Logger) (*TelemetrySink, closeFunc, error) {
	if log == nil {
		log = slog.Default()
	}
	nc, release, err := connect()
	if err != nil {
		return nil, nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		release()
		return nil, nil, err
	}
	return &TelemetrySink{js: js, subject: subject, log: log}, release, nil
}

// Handler returns a actor.SignalHandler that publishes a LifecycleEvent for
// every signal it observes and never itself requests a restart or fails
// the delivery — a publish failure is logged, not propagated, so telemetry
// can never be the reason an actor's shutdown cascade stalls.
func (s *TelemetrySink) Handler() actor.SignalHandler {
	return func(signal actor.Signal, ctx actor.HandlerContext) error {
		name, err := actor.CurrentActorName(ctx)
		if err != nil {
			name = "unknown"
		}
		ev := LifecycleEvent{Actor: name, At: time.Now()}
		switch sig := signal.(type) {
		case actor.ShutdownSignal:
			ev.Kind = "shutdown"
		case actor.PanicSignal:
			ev.Kind = "panic"
			if sig.Err != nil {
				ev.Error = sig.Err.Error()
			}
		default:
			ev.Kind = "unknown"
		}

		data, merr := json.Marshal(ev)
		if merr != nil {
			s.log.Error("telemetry: failed to marshal lifecycle event", slog.Any("error", merr))
			return nil
		}
		if _, perr := s.js.Publish(s.subject, data); perr != nil {
			s.log.Error("telemetry: failed to publish lifecycle event",
				slog.String("subject", s.subject), slog.Any("error", perr))
		}
		return nil
	}
}
