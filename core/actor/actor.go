// Package actor is a small actor runtime: typed mailboxes, lambda
// behaviors, signal-based shutdown and a parent/child shutdown cascade,
// modeled closely on fr.umlv.loom.actor.Actor but expressed with Go
// generics and goroutines instead of Java's type erasure and virtual
// threads.
//
// An actor's behavior is described by an interface type B; Of creates the
// actor, Behavior attaches the function that builds one B instance per
// (re)start, and Run starts a graph of actors and waits for all of them to
// shut down.
//
//	type Hello interface {
//		Say(message string)
//	}
//
//	hello := actor.Of[Hello]()
//	hello.Behavior(func(ctx actor.Context) Hello {
//		return helloBehavior{}
//	})
//	actor.Run([]actor.ActorRef{hello}, func(ctx actor.StartContext) {
//		actor.PostTo(ctx, hello, func(h Hello) error { h.Say("actors using goroutines"); return nil })
//	})
package actor

import (
	"reflect"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/kynesis/loomrun/core/queue"
	"github.com/kynesis/loomrun/core/reflector"
)

// State is the lifecycle stage of an actor.
type State int32

const (
	// StateCreated is the state of an actor right after Of, before it has
	// been started by Run or Context.Spawn.
	StateCreated State = iota
	// StateRunning is the state of a started actor that has not shut down.
	StateRunning
	// StateShutdown is the state of an actor that has processed a signal
	// and stopped consuming its mailbox.
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Message is a unit of work posted to an actor's mailbox: a function
// applied to the actor's current behavior. A handler returns ctx.Panic(err)
// or ctx.Restart() to request the corresponding control flow; any other
// non-nil error, or a panic raised while the handler runs, is treated as an
// unrecovered failure and turned into a PanicSignal.
type Message[B any] func(behavior B) error

// envelope is what actually flows through an actor's mailbox: either a
// user message (fn set) or a signal (signal set), never both. Go generics
// are reified, so unlike the source's single erased mailbox type this is
// an explicit sum rather than one interface two unrelated types happen to
// implement.
type envelope[B any] struct {
	fn     Message[B]
	signal *signalEnvelope
}

// ActorRef is the identity- and lifecycle-facing view of an actor, enough
// to name it as a spawn child or a signal target without knowing its
// behavior type.
type ActorRef interface {
	Name() string
	State() State
}

// actorCore is the package-private operations the runtime needs on an
// actor regardless of its behavior type. Any *Actor[B] implements it even
// though callers are only handed the narrower ActorRef.
type actorCore interface {
	ActorRef
	hasBehavior() bool
	checkOwner() error
	transitionToRunning() error
	startLoop(rt *runtime)
	doneChan() <-chan struct{}
	signalHandlersSnapshot() []SignalHandler
	appendSignalHandler(h SignalHandler)
	forceShutdown()
	postSignal(signal Signal, done bool) *signalEnvelope
}

// Actor is a named mailbox with a behavior of type B.
type Actor[B any] struct {
	name         string
	behaviorType reflect.Type
	mailbox      *queue.Queue[envelope[B]]
	behaviorFunc func(Context) B

	// owner is the goroutine id Of was called from. Behavior, OnSignal and
	// Spawn (context.go) are only valid from this goroutine, per spec
	// §3.1/§4.1.1 — the same owner-thread technique core/asyncscope uses
	// for AwaitAll/Await, reused here rather than left unchecked.
	owner uint64

	state          atomic.Int32
	signalHandlers atomic.Pointer[[]SignalHandler]
	done           chan struct{}
}

// Of creates an actor for behavior type B. With no name, one is derived
// from B's type name plus a short nanoid suffix, matching the default
// Actor.of(Class) naming in the source (there a process-wide counter; here
// a random suffix, so names stay unique across separately started
// processes too, not just within one). Of must be called before Run or
// Context.Spawn starts the actor; Behavior must be called exactly once
// before starting it.
func Of[B any](name ...string) *Actor[B] {
	t := reflect.TypeFor[B]()
	n := ""
	if len(name) > 0 {
		n = name[0]
	}
	if n == "" {
		n = reflector.TypeInfoForType(t).ShortName() + "-" + gonanoid.Must(6)
	}
	a := &Actor[B]{
		name:         n,
		behaviorType: t,
		mailbox:      queue.New[envelope[B]](),
		owner:        goid(),
		done:         make(chan struct{}),
	}
	return a
}

// Name returns the actor's name. Only useful for debugging and logging.
func (a *Actor[B]) Name() string { return a.name }

// State returns the actor's current lifecycle state.
func (a *Actor[B]) State() State { return State(a.state.Load()) }

func (a *Actor[B]) String() string { return "Actor(" + a.name + ")" }

// checkOwner fails unless called from the goroutine that created a via Of.
func (a *Actor[B]) checkOwner() error {
	if goid() != a.owner {
		return illegalState("%s: called from a goroutine other than the one that created it", a.name)
	}
	return nil
}

// Behavior sets the function that builds a fresh B each time the actor
// (re)starts. It can only be called once, before the actor is started, and
// only from the goroutine that created it via Of.
func (a *Actor[B]) Behavior(f func(Context) B) error {
	if f == nil {
		return illegalState("%s: behavior function must not be nil", a.name)
	}
	if err := a.checkOwner(); err != nil {
		return err
	}
	if a.State() != StateCreated {
		return illegalState("%s is already running/shutdown", a.name)
	}
	if a.behaviorFunc != nil {
		return illegalState("%s: Behavior can only be called once", a.name)
	}
	a.behaviorFunc = f
	return nil
}

// OnSignal registers a handler invoked when the actor receives a signal.
// It is only valid before the actor starts and only from the goroutine
// that created it via Of. Handlers run in registration order on the
// actor's own mailbox goroutine; a handler that panics or returns an error
// is logged and does not stop its siblings from running.
func (a *Actor[B]) OnSignal(h SignalHandler) error {
	if h == nil {
		return illegalState("%s: signal handler must not be nil", a.name)
	}
	if err := a.checkOwner(); err != nil {
		return err
	}
	if a.State() != StateCreated {
		return illegalState("%s is already running/shutdown", a.name)
	}
	a.appendSignalHandler(h)
	return nil
}

func (a *Actor[B]) hasBehavior() bool { return a.behaviorFunc != nil }

func (a *Actor[B]) transitionToRunning() error {
	if !a.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return illegalState("%s is already running/shutdown", a.name)
	}
	return nil
}

func (a *Actor[B]) doneChan() <-chan struct{} { return a.done }

func (a *Actor[B]) signalHandlersSnapshot() []SignalHandler {
	p := a.signalHandlers.Load()
	if p == nil {
		return nil
	}
	return *p
}

// appendSignalHandler copy-on-writes the handler list so a concurrent
// signalNow iterating a snapshot never observes a partially built slice,
// mirroring the source's CopyOnWriteArrayList.
func (a *Actor[B]) appendSignalHandler(h SignalHandler) {
	for {
		old := a.signalHandlers.Load()
		var next []SignalHandler
		if old != nil {
			next = make([]SignalHandler, len(*old), len(*old)+1)
			copy(next, *old)
		}
		next = append(next, h)
		if a.signalHandlers.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (a *Actor[B]) forceShutdown() {
	a.state.Store(int32(StateShutdown))
}

func (a *Actor[B]) postSignal(signal Signal, done bool) *signalEnvelope {
	se := newSignalEnvelope(signal, done)
	a.mailbox.Push(envelope[B]{signal: se})
	return se
}

// postMessage is used only by PostTo; unexported so a message can only
// reach the mailbox through a Poster capability.
func (a *Actor[B]) postMessage(msg Message[B]) {
	a.mailbox.Push(envelope[B]{fn: msg})
}
