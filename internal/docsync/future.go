package docsync

import "context"

// Future is a single-assignment asynchronous result.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// FailedFuture returns a future already resolved with err.
func FailedFuture[T any](err error) *Future[T] {
	f := NewFuture[T]()
	var zero T
	f.Resolve(zero, err)
	return f
}

// ResolvedFuture returns a future already resolved with val.
func ResolvedFuture[T any](val T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(val, nil)
	return f
}

// Resolve completes the future. It must be called exactly once.
func (f *Future[T]) Resolve(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Await blocks until the future resolves or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the future has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
