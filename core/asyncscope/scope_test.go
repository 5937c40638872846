package asyncscope

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// sleepThen returns a Computation that waits d (cancellably) and then
// yields value, mirroring the scenario helpers in spec §8.
func sleepThen[R any](d time.Duration, value R) Computation[R] {
	return func(ctx context.Context) (R, error) {
		select {
		case <-time.After(d):
			return value, nil
		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		}
	}
}

// --- Scenario 1: parallel sleeps sum to 42, in ~1s not ~2s. ---

func TestScope_AwaitAll_ParallelSleepsSumTo42(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()

	start := time.Now()
	a := scope.Async(sleepThen(50*time.Millisecond, 40))
	b := scope.Async(sleepThen(50*time.Millisecond, 2))

	require.NoError(t, scope.AwaitAll())
	elapsed := time.Since(start)
	require.Less(t, elapsed, 150*time.Millisecond)

	av, err := a.GetNow()
	require.NoError(t, err)
	bv, err := b.GetNow()
	require.NoError(t, err)
	require.Equal(t, 42, av+bv)
}

// --- Scenario 2: shutdown on first success cancels the slower task. ---

func TestScope_Await_FirstSuccessCancelsTheRest(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()

	slow := scope.Async(sleepThen(1*time.Second, 1))
	fast := scope.Async(sleepThen(20*time.Millisecond, 2))

	winner, err := Await(scope, func(stream *ResultStream[int]) int {
		for {
			r, perr := stream.Next()
			if perr != nil {
				return -1
			}
			if r.State() == ResultSuccess {
				v, _ := r.Value()
				return v
			}
		}
	})
	require.NoError(t, err)
	require.Equal(t, 2, winner)

	// slow was still in flight when the stream's consumer returned; Await
	// shutting the scope down must have cancelled it.
	require.True(t, slow.IsDone())
	require.True(t, slow.IsCancelled())
	require.True(t, fast.IsDone())
}

// --- Completion order and stream size. ---

func TestScope_Await_StreamSizeMatchesForkedCount(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()

	for i := 0; i < 5; i++ {
		scope.Async(sleepThen(time.Duration(i)*time.Millisecond, i))
	}

	var seen []int
	_, err := Await(scope, func(stream *ResultStream[int]) struct{} {
		n, lenErr := stream.Len()
		require.NoError(t, lenErr)
		require.Equal(t, 5, n)
		for {
			r, perr := stream.Next()
			if perr != nil {
				break
			}
			v, _ := r.Value()
			seen = append(seen, v)
		}
		return struct{}{}
	})
	require.NoError(t, err)
	require.Len(t, seen, 5)
}

// --- WrongThreadError: AwaitAll and Await from a non-owner goroutine. ---

func TestScope_AwaitAll_WrongThread(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()
	scope.Async(sleepThen(10*time.Millisecond, 1))

	var callErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		callErr = scope.AwaitAll()
	}()
	wg.Wait()

	var wte *WrongThreadError
	require.ErrorAs(t, callErr, &wte)
}

func TestScope_Await_WrongThread(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()
	scope.Async(sleepThen(10*time.Millisecond, 1))

	var callErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, callErr = Await(scope, func(stream *ResultStream[int]) struct{} { return struct{}{} })
	}()
	wg.Wait()

	var wte *WrongThreadError
	require.ErrorAs(t, callErr, &wte)
}

// --- AsyncTask boundary behaviors. ---

func TestAsyncTask_ResultBeforeDoneFails(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()

	task := scope.Async(sleepThen(200*time.Millisecond, 1))
	_, err := task.Result()
	var nde *NotDoneError
	require.ErrorAs(t, err, &nde)

	require.NoError(t, scope.AwaitAll())
	r, err := task.Result()
	require.NoError(t, err)
	require.Equal(t, ResultSuccess, r.State())
}

func TestAsyncTask_CancelUnsupported(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()

	task := scope.Async(sleepThen(10*time.Millisecond, 1))
	err := task.Cancel()
	var cue *CancelUnsupportedError
	require.ErrorAs(t, err, &cue)
	require.NoError(t, scope.AwaitAll())
}

func TestAsyncTask_GetTimeout(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()

	task := scope.Async(sleepThen(500*time.Millisecond, 1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := task.Get(ctx)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)

	require.NoError(t, scope.AwaitAll())
}

// --- Failed computation surfaces as a FAILED Result, not a crash. ---

func TestScope_ComputationFailureIsFailedResult(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()

	boom := errors.New("boom")
	task := scope.Async(func(context.Context) (int, error) { return 0, boom })
	require.NoError(t, scope.AwaitAll())

	r, err := task.Result()
	require.NoError(t, err)
	require.Equal(t, ResultFailed, r.State())
	require.ErrorIs(t, r.Failure(), boom)
}

// --- Result merger (§4.3.4 lattice, all nine cell combinations). ---

func sum(a, b int) int { return a + b }

func TestResultMerger_SuccessSuccess(t *testing.T) {
	merge := Merger[int](sum)
	s1 := Result[int]{state: ResultSuccess, value: 40}
	s2 := Result[int]{state: ResultSuccess, value: 2}
	merged := merge(s1, s2)
	require.Equal(t, ResultSuccess, merged.State())
	v, _ := merged.Value()
	require.Equal(t, 42, v)
}

func TestResultMerger_SuccessBeatsFailedAndCancelled(t *testing.T) {
	merge := Merger[int](sum)
	ok := Result[int]{state: ResultSuccess, value: 1}
	failed := Result[int]{state: ResultFailed, err: errors.New("x")}
	cancelled := Result[int]{state: ResultCancelled}

	require.Equal(t, ResultSuccess, merge(ok, failed).State())
	require.Equal(t, ResultSuccess, merge(failed, ok).State())
	require.Equal(t, ResultSuccess, merge(ok, cancelled).State())
	require.Equal(t, ResultSuccess, merge(cancelled, ok).State())
}

func TestResultMerger_FailedBeatsCancelled(t *testing.T) {
	merge := Merger[int](sum)
	failed := Result[int]{state: ResultFailed, err: errors.New("x")}
	cancelled := Result[int]{state: ResultCancelled}

	require.Equal(t, ResultFailed, merge(failed, cancelled).State())
	require.Equal(t, ResultFailed, merge(cancelled, failed).State())
}

func TestResultMerger_CancelledCancelled(t *testing.T) {
	merge := Merger[int](sum)
	cancelled := Result[int]{state: ResultCancelled}
	require.Equal(t, ResultCancelled, merge(cancelled, cancelled).State())
}

// FAILED ⊕ FAILED keeps the first failure, joining the second as a
// suppressed detail in argument order — not a symmetric merge.
func TestResultMerger_FailedFailedKeepsFirstOrderMatters(t *testing.T) {
	merge := Merger[int](sum)
	err1 := errors.New("first")
	err2 := errors.New("second")
	f1 := Result[int]{state: ResultFailed, err: err1}
	f2 := Result[int]{state: ResultFailed, err: err2}

	merged := merge(f1, f2)
	require.Equal(t, ResultFailed, merged.State())
	require.ErrorIs(t, merged.Failure(), err1)
	require.ErrorIs(t, merged.Failure(), err2)

	reversed := merge(f2, f1)
	require.ErrorIs(t, reversed.Failure(), err2)
	require.ErrorIs(t, reversed.Failure(), err1)
	// Both chains join the same two errors, but the rendered message
	// preserves which argument came first.
	require.NotEqual(t, merged.Failure().Error(), reversed.Failure().Error())
}

func TestResultMerger_IsAssociativeOnEqualArguments(t *testing.T) {
	merge := Merger[int](sum)
	a := Result[int]{state: ResultSuccess, value: 1}
	b := Result[int]{state: ResultSuccess, value: 2}
	c := Result[int]{state: ResultSuccess, value: 3}

	left := merge(merge(a, b), c)
	right := merge(a, merge(b, c))
	lv, _ := left.Value()
	rv, _ := right.Value()
	require.Equal(t, lv, rv)
}

// --- Close is idempotent and safe even without ever calling AwaitAll/Await. ---

func TestScope_CloseIsIdempotent(t *testing.T) {
	scope := New[int](Options{})
	scope.Async(sleepThen(5*time.Millisecond, 1))
	require.NoError(t, scope.Close())
	require.NoError(t, scope.Close())
}

// --- AsyncKeyed serializes same-key work, interleaves across keys. ---

func TestScope_AsyncKeyed_SerializesPerKey(t *testing.T) {
	scope := New[int](Options{})
	defer scope.Close()

	var mu sync.Mutex
	var order []string

	record := func(label string, d time.Duration) Computation[int] {
		return func(ctx context.Context) (int, error) {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			mu.Lock()
			order = append(order, label)
			mu.Unlock()
			return 0, nil
		}
	}

	scope.AsyncKeyed("a", record("a1", 30*time.Millisecond))
	scope.AsyncKeyed("a", record("a2", 5*time.Millisecond))
	scope.AsyncKeyed("b", record("b1", 5*time.Millisecond))

	require.NoError(t, scope.AwaitAll())

	mu.Lock()
	defer mu.Unlock()
	var aIndex1, aIndex2 int
	for i, label := range order {
		if label == "a1" {
			aIndex1 = i
		}
		if label == "a2" {
			aIndex2 = i
		}
	}
	require.Less(t, aIndex1, aIndex2, "a1 must finish before a2 despite a2's shorter sleep")
}
