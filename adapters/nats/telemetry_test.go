package nats

import (
	"encoding/json"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/kynesis/loomrun/core/actor"
)

func TestTelemetrySink_PublishesLifecycleEvents(t *testing.T) {
	connect := NewTestContainer(t)

	nc, release, err := connect()
	require.NoError(t, err)
	defer release()

	js, err := nc.JetStream()
	require.NoError(t, err)
	_, err = js.AddStream(&natsgo.StreamConfig{
		Name:     "ACTORS",
		Subjects: []string{"actors.lifecycle"},
	})
	require.NoError(t, err)

	sub, err := nc.SubscribeSync("actors.lifecycle")
	require.NoError(t, err)

	sink, closeSink, err := NewTelemetrySink(connect, "actors.lifecycle", nil)
	require.NoError(t, err)
	defer closeSink()

	hello := actor.Of[helloTelemetryBehavior]("hello")
	require.NoError(t, hello.Behavior(func(ctx actor.Context) helloTelemetryBehavior {
		return helloTelemetryImpl{ctx: ctx}
	}))
	require.NoError(t, hello.OnSignal(sink.Handler()))

	err = actor.Run([]actor.ActorRef{hello}, func(start actor.StartContext) {
		require.NoError(t, actor.PostTo(start, hello, func(b helloTelemetryBehavior) error {
			b.End()
			return nil
		}))
	}, actor.Options{})
	require.NoError(t, err)

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var ev LifecycleEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	require.Equal(t, "hello", ev.Actor)
	require.Equal(t, "shutdown", ev.Kind)
}

type helloTelemetryBehavior interface {
	End()
}

type helloTelemetryImpl struct{ ctx actor.Context }

func (h helloTelemetryImpl) End() { _ = h.ctx.Shutdown() }
