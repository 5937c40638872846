package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kynesis/loomrun/core/actor"
)

type helloBehavior interface {
	Say(message string)
	End()
}

type helloImpl struct {
	ctx  actor.Context
	said *[]string
}

func (h *helloImpl) Say(message string) { *h.said = append(*h.said, message) }
func (h *helloImpl) End()               { _ = h.ctx.Shutdown() }

func TestRuntime_RunsActorsAndStopsWhenTheyShutDown(t *testing.T) {
	var said []string
	hello := actor.Of[helloBehavior]("hello")
	require.NoError(t, hello.Behavior(func(ctx actor.Context) helloBehavior {
		return &helloImpl{ctx: ctx, said: &said}
	}))

	rt := New(Config{
		Actors: []actor.ActorRef{hello},
		Bootstrap: func(start actor.StartContext) {
			require.NoError(t, actor.PostTo(start, hello, func(b helloBehavior) error {
				b.Say("world")
				return nil
			}))
			require.NoError(t, actor.PostTo(start, hello, func(b helloBehavior) error {
				b.End()
				return nil
			}))
		},
	})

	require.NoError(t, rt.Run())
	require.Equal(t, []string{"world"}, said)
	require.Equal(t, actor.StateShutdown, hello.State())
}

func TestRuntime_StopEndsRunWithoutAnyActorShuttingDownItself(t *testing.T) {
	idle := actor.Of[idleBehavior]("idle")
	require.NoError(t, idle.Behavior(func(ctx actor.Context) idleBehavior {
		return idleImpl{}
	}))

	rt := New(Config{Actors: []actor.ActorRef{idle}})

	done := make(chan error, 1)
	go func() { done <- rt.Run() }()

	// Give the mailbox loop a moment to start waiting on Take before we
	// cancel; nothing ever posts to idle, so only Stop can end Run.
	time.Sleep(50 * time.Millisecond)
	rt.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runtime did not stop after Stop")
	}
	require.Equal(t, actor.StateShutdown, idle.State(),
		"context cancellation must still drive the actor to SHUTDOWN, not just end its goroutine")
}

func TestRuntime_DefaultsContextAndLogger(t *testing.T) {
	rt := New(Config{})
	require.NotNil(t, rt.cfg.Context)
	require.NotNil(t, rt.cfg.Logger)
	require.NoError(t, rt.Run())
}

type idleBehavior interface{}

type idleImpl struct{}
