package actor

import "fmt"

// IllegalActorStateError reports a use of the actor API that is
// incompatible with an actor's current lifecycle state or with the
// capability the caller was holding: starting an already-running actor,
// setting a behavior twice, resolving the current actor at the wrong type,
// or an actor trying to signal itself.
type IllegalActorStateError struct {
	Message string
	Cause   error
}

func (e *IllegalActorStateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("actor: illegal state: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("actor: illegal state: %s", e.Message)
}

func (e *IllegalActorStateError) Unwrap() error { return e.Cause }

func illegalState(format string, args ...any) error {
	return &IllegalActorStateError{Message: fmt.Sprintf(format, args...)}
}

// panicError is the control-flow marker Context.Panic returns. A message
// handler returns it from inside a "throw"-shaped call site; the mailbox
// loop unwraps Cause before turning it into a PanicSignal, mirroring the
// source's PanicError wrapping an Exception.
type panicError struct {
	Cause error
}

func (e *panicError) Error() string { return fmt.Sprintf("actor: panic: %v", e.Cause) }
func (e *panicError) Unwrap() error { return e.Cause }

// restartError is the control-flow marker Context.Restart returns. Handled
// specially by the mailbox loop: the mailbox is cleared and the behavior
// factory re-invoked, rather than treated as a handler failure.
type restartError struct{}

func (*restartError) Error() string { return "actor: restart requested" }

var errRestart = &restartError{}
