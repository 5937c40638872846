// Package asyncscope is a structured concurrency primitive: a lexically
// scoped group of concurrent computations whose outcomes are collected in
// completion order, modeled on fr.umlv.loom.structured.AsyncScope (itself
// built on the JDK incubator StructuredTaskScope). A scope is owned by the
// goroutine that creates it; AwaitAll and Await may only be called from
// that goroutine, and panic that rule out into *WrongThreadError rather
// than corrupting the scope's bookkeeping.
//
//	scope := asyncscope.New[int](asyncscope.Options{})
//	defer scope.Close()
//	a := scope.Async(sleepFor(time.Second, 40))
//	b := scope.Async(sleepFor(time.Second, 2))
//	scope.AwaitAll()
//	av, _ := a.GetNow()
//	bv, _ := b.GetNow()
//	sum := av + bv // 42
package asyncscope

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kynesis/loomrun/core/perkey"
	"github.com/kynesis/loomrun/core/queue"
)

// Options configures a Scope. Zero-value fields default the same way
// core/actor.Options resolves theirs.
type Options struct {
	Context context.Context
	Logger  *slog.Logger
	Metrics Metrics
	// Label distinguishes this scope in Metrics calls. Defaults to "".
	Label string
}

func (o Options) resolve() Options {
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = NopMetrics()
	}
	return o
}

// Scope is a structured group of concurrent Computation[R] forks. R is the
// single result type shared by every task forked into one scope; the
// source's per-scope checked exception type E is collapsed to the builtin
// error interface, since Go has no parameterized/checked exceptions.
type Scope[R any] struct {
	owner uint64
	ctx   context.Context
	log   *slog.Logger
	met   Metrics
	label string

	cancel      context.CancelFunc
	shutdownOne sync.Once

	completions *queue.Queue[*asyncTask[R]]
	outstanding atomic.Int64
	wg          sync.WaitGroup

	keyed *perkey.Scheduler[string]

	closed atomic.Bool
}

// New creates a scope bound to the calling goroutine.
func New[R any](opts Options) *Scope[R] {
	opts = opts.resolve()
	ctx, cancel := context.WithCancel(opts.Context)
	return &Scope[R]{
		owner:       goid(),
		ctx:         ctx,
		log:         opts.Logger,
		met:         opts.Metrics,
		label:       opts.Label,
		cancel:      cancel,
		completions: queue.New[*asyncTask[R]](),
		keyed:       perkey.New[string](),
	}
}

func (s *Scope[R]) checkThread() error {
	if goid() != s.owner {
		return &WrongThreadError{}
	}
	return nil
}

// Async forks computation on its own goroutine and returns immediately
// with a handle to the eventual outcome. Unlike AwaitAll/Await, Async is
// not gated to the owner goroutine: a computation running inside the scope
// may itself fork further tasks.
func (s *Scope[R]) Async(computation Computation[R]) AsyncTask[R] {
	t := &asyncTask[R]{done: make(chan struct{})}
	s.outstanding.Add(1)
	s.wg.Add(1)
	s.met.TaskForked(s.label)
	go func() {
		defer s.wg.Done()
		timer := s.met.TaskDuration(s.label)
		value, err := callComputation(s.ctx, computation)
		timer.ObserveDuration()
		t.result = classify(s.ctx, value, err)
		s.met.TaskCompleted(s.label, t.result.state)
		close(t.done)
		s.completions.Push(t)
		s.met.CompletionQueueDepth(s.label, s.completions.Len())
	}()
	return t
}

// AsyncKeyed is like Async, except computations sharing the same key run
// one at a time, in submission order, while different keys still run
// concurrently. It is a supplement beyond the source, backed by
// core/perkey's per-key scheduler.
func (s *Scope[R]) AsyncKeyed(key string, computation Computation[R]) AsyncTask[R] {
	t := &asyncTask[R]{done: make(chan struct{})}
	s.outstanding.Add(1)
	s.wg.Add(1)
	s.met.TaskForked(s.label)
	go func() {
		defer s.wg.Done()
		timer := s.met.TaskDuration(s.label)
		err := s.keyed.DoContext(s.ctx, key, func() error {
			value, cerr := callComputation(s.ctx, computation)
			t.result = classify(s.ctx, value, cerr)
			return nil
		})
		if err != nil {
			// The scheduler was closed, or ctx was cancelled before the
			// task ever ran; either way it never executed.
			t.result = Result[R]{state: ResultCancelled}
		}
		timer.ObserveDuration()
		s.met.TaskCompleted(s.label, t.result.state)
		close(t.done)
		s.completions.Push(t)
		s.met.CompletionQueueDepth(s.label, s.completions.Len())
	}()
	return t
}

// AwaitAll blocks until every task forked so far has completed, then shuts
// the scope down (no further cancellation is needed — there is nothing
// left running).
func (s *Scope[R]) AwaitAll() error {
	if err := s.checkThread(); err != nil {
		return err
	}
	s.wg.Wait()
	s.shutdownOne.Do(s.cancel)
	return nil
}

// ResultStream is the finite, not-restartable, completion-order sequence
// of Results produced by Await. Its length is fixed at the number of tasks
// outstanding when Await was called; tasks forked afterward (from within
// already-running computations) are not included.
type ResultStream[R any] struct {
	scope     *Scope[R]
	remaining int
}

// Len reports how many results remain to be pulled.
func (rs *ResultStream[R]) Len() (int, error) {
	if err := rs.scope.checkThread(); err != nil {
		return 0, err
	}
	return rs.remaining, nil
}

// Next blocks for the next task to complete, in completion order, and
// returns its Result. Once every result for this stream has been pulled,
// or the scope's context is cancelled while Next is waiting, it returns a
// non-nil error and the sequence is over; callers stop on any error, the
// same as range-ing over All.
func (rs *ResultStream[R]) Next() (Result[R], error) {
	if err := rs.scope.checkThread(); err != nil {
		return Result[R]{}, err
	}
	if rs.remaining <= 0 {
		return Result[R]{}, errStreamExhausted
	}
	task, ok := rs.scope.completions.Take(rs.scope.ctx)
	if !ok {
		rs.remaining = 0
		return Result[R]{}, errStreamExhausted
	}
	rs.remaining--
	rs.scope.outstanding.Add(-1)
	return task.result, nil
}

// All adapts the stream to a range-over-func iterator for for-range loops.
func (rs *ResultStream[R]) All() func(yield func(Result[R]) bool) {
	return func(yield func(Result[R]) bool) {
		for {
			r, err := rs.Next()
			if err != nil || !yield(r) {
				return
			}
		}
	}
}

// Await exposes the completion-order stream of outstanding results to
// mapper and returns whatever mapper returns. mapper need not drain the
// stream fully — stopping early (e.g. a "first success wins" policy) is
// exactly what causes the remaining in-flight tasks to be cancelled once
// Await shuts the scope down. Await is a free function, not a method,
// because Go methods cannot introduce their own type parameter (V here);
// see core/actor.CurrentActor for the same constraint.
func Await[R, V any](s *Scope[R], mapper func(*ResultStream[R]) V) (V, error) {
	var zero V
	if err := s.checkThread(); err != nil {
		return zero, err
	}
	stream := &ResultStream[R]{scope: s, remaining: int(s.outstanding.Load())}
	value := mapper(stream)
	interrupted := s.ctx.Err() != nil
	s.shutdownOne.Do(s.cancel)
	s.wg.Wait()
	if interrupted {
		return zero, context.Canceled
	}
	return value, nil
}

// Close releases the scope's substrate: it cancels any still-running
// computations and waits for their goroutines to exit. Close is idempotent
// — calling it more than once, including after AwaitAll or Await already
// shut the scope down, is a no-op — so `defer scope.Close()` is always
// safe even on a path that panics before reaching AwaitAll/Await (the
// RAII guarantee the source's try-with-resources gives for free).
func (s *Scope[R]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.shutdownOne.Do(s.cancel)
	s.wg.Wait()
	s.keyed.Close()
	return nil
}
