package actor

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
)

// Poster is the capability shared by StartContext, Context and
// HandlerContext to post a message into an actor's mailbox via PostTo.
// It exists only to gate PostTo to code holding one of the three
// capability interfaces below, rather than letting anyone construct an
// envelope directly.
type Poster interface {
	isPoster()
}

// StartContext is handed to the callback passed to Run: it can post
// messages to any actor in the graph but has no actor identity of its own.
type StartContext interface {
	Poster
}

// Context is handed to an actor's behavior factory and threaded through to
// every message handler closure it returns.
type Context interface {
	Poster
	// Panic stops the current message handler with err, which is
	// delivered to the actor's signal handlers as a PanicSignal. Intended
	// to be used as `return ctx.Panic(err)`.
	Panic(err error) error
	// Spawn starts child as a child of the current actor. If the current
	// actor later shuts down, child is shut down right after it, before
	// any other signal handler registered after this call runs. child's
	// owner thread must be the calling goroutine, i.e. the same goroutine
	// that created child via Of.
	Spawn(child ActorRef) error
	// Shutdown asks the current actor to finish its mailbox and then shut
	// down. Already-queued messages are still processed first.
	Shutdown() error
}

// HandlerContext is handed to a SignalHandler.
type HandlerContext interface {
	Poster
	// Restart discards the mailbox and rebuilds the behavior from
	// scratch. Intended to be used as `return ctx.Restart()`.
	Restart() error
	// Signal delivers signal to target and blocks until target's mailbox
	// loop has run every handler registered for it. Signaling the current
	// actor itself is an error.
	Signal(target ActorRef, signal Signal) error
}

// runtime is shared by every actor started from the same Run call (or
// transitively spawned from one): the fields a contextImpl needs that
// don't vary per actor.
type runtime struct {
	ctx     context.Context
	log     *slog.Logger
	metrics Metrics
}

// contextImpl is the concrete capability object for one actor. Unlike the
// source, which binds "the current actor" through an ambient thread-local
// (ScopeLocal) shared by one process-wide context instance, each actor
// here gets its own contextImpl carrying an explicit reference to itself:
// behaviors and signal handlers already receive ctx as a parameter, so
// there is no need to recover actor identity from the calling goroutine.
type contextImpl struct {
	rt   *runtime
	self actorCore // nil for the StartContext used by Run's callback
}

func (c *contextImpl) isPoster() {}

func (c *contextImpl) Panic(err error) error {
	if err == nil {
		err = fmt.Errorf("actor: panic called with nil error")
	}
	return &panicError{Cause: err}
}

func (c *contextImpl) Restart() error { return errRestart }

func (c *contextImpl) Spawn(child ActorRef) error {
	if child == nil {
		return illegalState("spawn: child must not be nil")
	}
	if c.self == nil {
		return illegalState("spawn: no current actor")
	}
	core, ok := child.(actorCore)
	if !ok {
		return illegalState("spawn: %s is not a core actor", child.Name())
	}
	if err := core.checkOwner(); err != nil {
		return err
	}
	if !core.hasBehavior() {
		return illegalState("%s behavior is not defined", child.Name())
	}
	if err := core.transitionToRunning(); err != nil {
		return err
	}
	c.self.appendSignalHandler(func(_ Signal, hctx HandlerContext) error {
		return hctx.Signal(child, Shutdown)
	})
	core.startLoop(c.rt)
	return nil
}

func (c *contextImpl) Shutdown() error {
	if c.self == nil {
		return illegalState("shutdown: no current actor")
	}
	c.self.postSignal(Shutdown, true)
	return nil
}

func (c *contextImpl) Signal(target ActorRef, signal Signal) error {
	if target == nil {
		return illegalState("signal: target must not be nil")
	}
	if signal == nil {
		return illegalState("signal: signal must not be nil")
	}
	if c.self == nil {
		return illegalState("signal: no current actor")
	}
	if any(target) == any(c.self) {
		return illegalState("an actor can not signal itself")
	}
	core, ok := target.(actorCore)
	if !ok {
		return illegalState("signal: %s is not a core actor", target.Name())
	}
	se := core.postSignal(signal, false)
	return se.join(c.rt.ctx.Err)
}

// PostTo posts msg to target's mailbox. Callers hold one of StartContext,
// Context or HandlerContext — the Poster capability — which is all the
// source requires to post; PostTo itself needs target's concrete type to
// reach its typed mailbox, which is why it is a free function rather than
// an interface method (Go methods cannot introduce their own type
// parameters).
func PostTo[B any](ctx Poster, target *Actor[B], msg Message[B]) error {
	if ctx == nil {
		return illegalState("postTo: no poster capability")
	}
	if target == nil {
		return illegalState("postTo: target must not be nil")
	}
	if msg == nil {
		return illegalState("postTo: message must not be nil")
	}
	target.postMessage(msg)
	return nil
}

// CurrentActorName returns the name of the actor bound to ctx. Unlike
// CurrentActor it only needs the Poster capability, so it works from a
// HandlerContext too (e.g. telemetry sinks attaching to OnSignal), not just
// from a message-handling Context.
func CurrentActorName(ctx Poster) (string, error) {
	ci, ok := ctx.(*contextImpl)
	if !ok || ci.self == nil {
		return "", illegalState("no current actor")
	}
	return ci.self.Name(), nil
}

// CurrentActor resolves the actor ctx belongs to as *Actor[B], failing if
// ctx carries no actor (a StartContext) or if the actor's behavior type is
// not B.
func CurrentActor[B any](ctx Context) (*Actor[B], error) {
	ci, ok := ctx.(*contextImpl)
	if !ok || ci.self == nil {
		return nil, illegalState("no current actor")
	}
	a, ok := ci.self.(*Actor[B])
	if !ok {
		return nil, illegalState("%s does not allow behavior %s", ci.self.Name(), reflect.TypeFor[B]().String())
	}
	return a, nil
}

// signalNow runs every handler registered on a for signal, in registration
// order. It returns errRestart, without running any remaining handlers, the
// moment a handler asks to restart; any other handler error or panic is
// logged and iteration continues.
func signalNow(signal Signal, ctx HandlerContext, a actorCore, rt *runtime) error {
	a.forceShutdown()
	for _, h := range a.signalHandlersSnapshot() {
		if restart := invokeSignalHandler(h, signal, ctx, a, rt); restart {
			return errRestart
		}
	}
	return nil
}

func invokeSignalHandler(h SignalHandler, signal Signal, ctx HandlerContext, a actorCore, rt *runtime) (restart bool) {
	defer func() {
		if r := recover(); r != nil {
			rt.log.Error("signal handler panicked",
				slog.String("actor", a.Name()),
				slog.Any("recovered", r))
		}
	}()
	err := h(signal, ctx)
	if err == nil {
		return false
	}
	if _, ok := err.(*restartError); ok {
		return true
	}
	rt.log.Error("signal handler failed",
		slog.String("actor", a.Name()),
		slog.Any("error", err))
	return false
}

// startLoop runs a's mailbox loop on its own goroutine: build the
// behavior, take envelopes until a signal or cancellation arrives, apply
// messages with panic containment, and honor restart requests by clearing
// the mailbox and rebuilding the behavior — the same shape as the source's
// startThread, minus the ScopeLocal binding contextImpl replaces.
func (a *Actor[B]) startLoop(rt *runtime) {
	go func() {
		defer close(a.done)
		ctx := &contextImpl{rt: rt, self: a}
		behavior := a.behaviorFunc(ctx)
		for {
			rt.metrics.MailboxDepth(a.name, a.mailbox.Len())
			env, ok := a.mailbox.Take(rt.ctx)
			if !ok {
				cause := rt.ctx.Err()
				if cause == nil {
					cause = context.Canceled
				}
				rt.log.Error("actor interrupted",
					slog.String("actor", a.Name()),
					slog.Any("error", cause))
				signalNow(PanicSignal{Err: cause}, ctx, a, rt)
				return
			}
			if env.signal != nil {
				rt.metrics.SignalReceived(a.name, signalKind(env.signal.signal))
				var restartRequested bool
				func() {
					defer env.signal.markDone()
					if err := signalNow(env.signal.signal, ctx, a, rt); err != nil {
						restartRequested = true
					}
				}()
				if restartRequested {
					// A signal handler asked to restart rather than let
					// this delivery finish shutting the actor down.
					// signalNow already forced state to StateShutdown —
					// that is not undone, matching the source: an actor
					// that restarted out of a signal keeps reporting
					// shutdown even though its mailbox loop keeps running.
					rt.metrics.Restarted(a.name)
					a.mailbox.Clear()
					behavior = a.behaviorFunc(ctx)
					continue
				}
				return
			}
			timer := rt.metrics.MessageDuration(a.name)
			err := safeApply(env.fn, behavior)
			timer.ObserveDuration()
			if err == nil {
				rt.metrics.MessageProcessed(a.name, true)
				continue
			}
			rt.metrics.MessageProcessed(a.name, false)
			cause := err
			if pe, ok := err.(*panicError); ok {
				cause = pe.Cause
			}
			rt.log.Error("actor message handler failed",
				slog.String("actor", a.Name()),
				slog.Any("error", cause))
			signalNow(PanicSignal{Err: cause}, ctx, a, rt)
			return
		}
	}()
}

func signalKind(s Signal) string {
	switch s.(type) {
	case ShutdownSignal:
		return "shutdown"
	case PanicSignal:
		return "panic"
	default:
		return "unknown"
	}
}

func safeApply[B any](fn Message[B], behavior B) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in message handler: %v", r)
		}
	}()
	return fn(behavior)
}
