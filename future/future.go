// Package future provides a single-result asynchronous unit of work.
//
// A [Future] wraps a closure that is prepared up front and executed at most
// once. The caller picks the execution context: [Future.Start] runs it on a
// new goroutine, [Future.Await] runs it on the calling goroutine when it has
// not been started yet. Either way exactly one [Result] is produced.
//
// Started work is never cancelled. A context passed to Await only bounds how
// long the caller waits for it.
package future

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Func is the unit of work executed by a Future.
type Func[T any] func(ctx context.Context) (T, error)

// Future is a prepared unit of work producing one Result. The zero value is
// not usable; create one with New, Go or Resolved.
type Future[T any] struct {
	fn      Func[T]
	started atomic.Bool
	done    chan struct{}
	result  Result[T]
}

// New prepares fn without running it.
func New[T any](fn Func[T]) *Future[T] {
	return &Future[T]{fn: fn, done: make(chan struct{})}
}

// Go prepares fn and immediately starts it on a new goroutine.
func Go[T any](ctx context.Context, fn Func[T]) *Future[T] {
	return New(fn).Start(ctx)
}

// Resolved returns a Future that has already completed with r.
func Resolved[T any](r Result[T]) *Future[T] {
	f := New[T](nil)
	f.started.Store(true)
	f.result = r
	close(f.done)
	return f
}

func (f *Future[T]) run(ctx context.Context) {
	defer close(f.done)
	defer func() {
		if r := recover(); r != nil {
			f.result = Err[T](errors.Newf("future: panic: %v", r))
		}
	}()
	val, err := f.fn(ctx)
	f.result = Result[T]{Ok: val, Err: err}
}

// Start runs the work on a new goroutine. Calling Start on a Future that is
// already running or finished is a no-op.
func (f *Future[T]) Start(ctx context.Context) *Future[T] {
	if f.started.CompareAndSwap(false, true) {
		go f.run(ctx)
	}
	return f
}

// Await returns the outcome of the work. If the work was never started it is
// executed on the calling goroutine. If ctx ends first the context error is
// returned and the work keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if f.started.CompareAndSwap(false, true) {
		f.run(ctx)
		return f.result.Unwrap()
	}
	select {
	case <-f.done:
		return f.result.Unwrap()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the work has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome and whether the work has finished.
func (f *Future[T]) Result() (Result[T], bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return Result[T]{}, false
	}
}
