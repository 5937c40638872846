package actor

import "sync"

// Signal is raised when an actor shuts down, either deliberately (via
// Context.Shutdown, HandlerContext.Signal) or because a message handler
// failed. The only two implementations are ShutdownSignal and PanicSignal.
type Signal interface {
	isSignal()
}

// ShutdownSignal is the signal delivered to an actor's handlers when it
// shuts down cleanly. Shutdown is the only value of this type.
type ShutdownSignal struct{}

func (ShutdownSignal) isSignal() {}

// Shutdown is the singleton ShutdownSignal value.
var Shutdown Signal = ShutdownSignal{}

// PanicSignal is the signal delivered when a message handler raises an
// error or panics. Err is never nil.
type PanicSignal struct {
	Err error
}

func (PanicSignal) isSignal() {}

// SignalHandler reacts to a signal raised on the actor it was registered
// on. A handler returns nil normally, or ctx.Restart() to rebuild the
// actor instead of letting it stop — typically done in response to a
// PanicSignal. Any other non-nil error is logged and does not stop
// remaining handlers from running; a panic inside a handler is recovered
// and logged the same way. Restart is the one outcome that is not merely
// logged: it aborts the rest of this delivery and rebuilds the actor.
type SignalHandler func(signal Signal, ctx HandlerContext) error

// signalEnvelope is the internal message that carries a signal through an
// actor's mailbox next to ordinary messages, and lets the sender wait for
// delivery to complete.
//
// done starts true for an asynchronous (self-)shutdown request — nobody
// ever calls join on it — and false for a synchronous cross-actor signal,
// where join blocks the caller until the receiving actor's mailbox loop has
// run every registered handler.
type signalEnvelope struct {
	signal Signal

	mu   sync.Mutex
	cond *sync.Cond
	done bool
}

func newSignalEnvelope(signal Signal, done bool) *signalEnvelope {
	se := &signalEnvelope{signal: signal, done: done}
	se.cond = sync.NewCond(&se.mu)
	return se
}

func (se *signalEnvelope) markDone() {
	se.mu.Lock()
	if !se.done {
		se.done = true
		se.cond.Signal()
	}
	se.mu.Unlock()
}

// join blocks until the signal has been fully delivered. If ctx is
// cancelled while waiting, join still waits for delivery to finish —
// cancellation is only reported afterward, via the returned error — the
// same "remember, don't abandon" shape the source's interrupt-surviving
// wait uses: the caller learns delivery actually completed before being
// told its wait was interrupted.
func (se *signalEnvelope) join(cancelled func() error) error {
	se.mu.Lock()
	for !se.done {
		se.cond.Wait()
	}
	se.mu.Unlock()
	if cancelled != nil {
		return cancelled()
	}
	return nil
}
