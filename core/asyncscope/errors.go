package asyncscope

import "errors"

// WrongThreadError is returned when an owner-gated AsyncScope operation
// (AwaitAll, Await, or a ResultStream pull) is invoked from a goroutine
// other than the one that created the scope.
type WrongThreadError struct{}

func (*WrongThreadError) Error() string {
	return "asyncscope: called from a goroutine other than the scope's owner"
}

// TimeoutError is returned by AsyncTask.Get when the deadline on the
// supplied context elapses before the task completes. The task itself
// keeps running; Get with a timeout never cancels it.
type TimeoutError struct{}

func (*TimeoutError) Error() string {
	return "asyncscope: task did not complete before the deadline"
}

// NotDoneError is returned by AsyncTask.Result and AsyncTask.GetNow when
// called before the task has completed.
type NotDoneError struct{}

func (*NotDoneError) Error() string {
	return "asyncscope: task has not completed"
}

// CancelUnsupportedError is always returned by AsyncTask.Cancel. Cancelling
// an individual task is not supported; the only way a task is cancelled is
// by the scope shutting down around it.
type CancelUnsupportedError struct{}

func (*CancelUnsupportedError) Error() string {
	return "asyncscope: cancel is not supported; cancellation comes only from scope shutdown"
}

// ErrCancelled is the failure reported by AsyncTask.GetNow and Result.GetNow
// for a task whose Result state is Cancelled.
var ErrCancelled = errors.New("asyncscope: computation was cancelled")

// errStreamExhausted ends a ResultStream: every result for that stream has
// either been pulled already, or the scope's context was cancelled while
// Next was waiting on the next completion.
var errStreamExhausted = errors.New("asyncscope: stream exhausted")
