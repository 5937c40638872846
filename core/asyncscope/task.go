package asyncscope

import (
	"context"
	"errors"
	"fmt"
)

// Computation is a unit of work forked into an AsyncScope. It receives the
// scope's context so it can observe cancellation cooperatively — Go has no
// equivalent of the source's thread-interrupt, so a computation that blocks
// without selecting on ctx.Done() cannot be stopped early by scope shutdown.
type Computation[R any] func(ctx context.Context) (R, error)

// AsyncTask is the handle returned by AsyncScope.Async and AsyncScope.AsyncKeyed.
type AsyncTask[R any] interface {
	// IsDone reports whether the computation has finished, successfully,
	// with a failure, or cancelled.
	IsDone() bool
	// IsCancelled reports whether the task's Result state is Cancelled.
	// False before the task is done.
	IsCancelled() bool
	// Get blocks for the value. If ctx is cancelled first, Get returns
	// ctx.Err(), wrapped as *TimeoutError when the cause is a deadline.
	// The task itself is not affected; Get never cancels it.
	Get(ctx context.Context) (R, error)
	// Result returns the task's Result if done, or *NotDoneError.
	Result() (Result[R], error)
	// GetNow returns the value on success, the computation's error on
	// failure, or ErrCancelled on cancellation — or *NotDoneError if the
	// task has not completed.
	GetNow() (R, error)
	// Cancel always fails: individual tasks cannot be cancelled, only the
	// scope they belong to.
	Cancel() error
}

type asyncTask[R any] struct {
	done   chan struct{}
	result Result[R]
}

func (t *asyncTask[R]) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *asyncTask[R]) IsCancelled() bool {
	if !t.IsDone() {
		return false
	}
	return t.result.state == ResultCancelled
}

func (t *asyncTask[R]) Get(ctx context.Context) (R, error) {
	select {
	case <-t.done:
		return t.result.GetNow()
	case <-ctx.Done():
		var zero R
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, &TimeoutError{}
		}
		return zero, ctx.Err()
	}
}

func (t *asyncTask[R]) Result() (Result[R], error) {
	if !t.IsDone() {
		return Result[R]{}, &NotDoneError{}
	}
	return t.result, nil
}

func (t *asyncTask[R]) GetNow() (R, error) {
	if !t.IsDone() {
		var zero R
		return zero, &NotDoneError{}
	}
	return t.result.GetNow()
}

func (t *asyncTask[R]) Cancel() error { return &CancelUnsupportedError{} }

// callComputation runs fn, turning a panic into a failure the same way
// core/actor.safeApply contains a message handler panic.
func callComputation[R any](ctx context.Context, fn Computation[R]) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			value = zero
			err = fmt.Errorf("asyncscope: computation panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// classify turns a computation's raw (value, error) into a Result,
// recognizing a cancelled scope context as Cancelled rather than Failed.
func classify[R any](scopeCtx context.Context, value R, err error) Result[R] {
	if err == nil {
		return Result[R]{state: ResultSuccess, value: value}
	}
	if errors.Is(err, context.Canceled) && scopeCtx.Err() != nil {
		return Result[R]{state: ResultCancelled}
	}
	return Result[R]{state: ResultFailed, err: err}
}
