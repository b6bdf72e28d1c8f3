package thumbnail

import "context"

// Task is one racer. It receives a context cancelled once the race is
// decided, but losing tasks are not required to honour it: their results
// are discarded either way.
type Task[T any] func(ctx context.Context) (T, error)

type settled[T any] struct {
	val T
	err error
}

// Race runs tasks concurrently and returns the first one to settle,
// success or failure. abort pre-empts every task: if it is closed when
// the race is decided, even simultaneously with a result, Race returns
// ErrCancelled. Losers keep running into buffered channels and are
// dropped.
func Race[T any](ctx context.Context, abort <-chan struct{}, tasks ...Task[T]) (T, error) {
	var zero T
	if aborted(abort) {
		return zero, ErrCancelled
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan settled[T], len(tasks))
	for _, task := range tasks {
		go func() {
			v, err := task(raceCtx)
			results <- settled[T]{v, err}
		}()
	}

	select {
	case <-abort:
		return zero, ErrCancelled
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-results:
		if aborted(abort) {
			return zero, ErrCancelled
		}
		return r.val, r.err
	}
}

// aborted is a non-blocking check of the abort signal.
func aborted(abort <-chan struct{}) bool {
	select {
	case <-abort:
		return true
	default:
		return false
	}
}
