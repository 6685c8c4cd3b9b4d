package executor

import (
	"context"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/lspconn"
)

// Operation is one request against one server connection.
type Operation[T any] func(ctx context.Context, conn lspconn.Conn) (T, error)

// ComputeAll dispatches op to every connection in scope and returns the
// per-connection futures without waiting. Document-scoped dispatch goes
// through each pair's send queue, so results are computed against the
// content version the server has already seen.
func ComputeAll[T any](ctx context.Context, ex *Executor, op Operation[T]) []*docsync.Future[T] {
	if syncs := ex.Synchronizers(); ex.session != nil {
		futures := make([]*docsync.Future[T], len(syncs))
		for i, s := range syncs {
			futures[i] = docsync.ExecuteOnCurrentVersion(s, s.Stamp(), func(_ context.Context, conn lspconn.Conn) (T, error) {
				return op(ctx, conn)
			})
		}
		return futures
	}

	conns := ex.Conns()
	futures := make([]*docsync.Future[T], len(conns))
	for i, conn := range conns {
		f := docsync.NewFuture[T]()
		futures[i] = f
		go func(conn lspconn.Conn) {
			f.Resolve(op(ctx, conn))
		}(conn)
	}
	return futures
}

// CollectAll dispatches op to every connection in scope, waits for all of
// them, and returns the non-empty successful results. Per-connection
// failures are logged and dropped; they never fail the aggregate.
func CollectAll[T any](ctx context.Context, ex *Executor, op Operation[T]) []T {
	futures := ComputeAll(ctx, ex, op)

	var mu sync.Mutex
	var out []T
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range futures {
		f := f
		g.Go(func() error {
			val, err := f.Await(ctx)
			if err != nil {
				if !lspconn.IsRequestCancelled(err) {
					ex.log.WithError(err).Warn("server dropped from aggregate")
				}
				return nil
			}
			if isEmpty(val) {
				return nil
			}
			mu.Lock()
			out = append(out, val)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ComputeFirst resolves with the first non-empty result. An early empty or
// failed response never pre-empts a slower real answer; the zero value comes
// back only once every connection has answered without one.
func ComputeFirst[T any](ctx context.Context, ex *Executor, op Operation[T]) (T, error) {
	return ComputeFirstMatching(ctx, ex, op, func(val T) bool {
		return !isEmpty(val)
	})
}

// ComputeFirstMatching is ComputeFirst with a caller-supplied acceptance
// predicate, for result types where non-emptiness is the wrong test.
func ComputeFirstMatching[T any](ctx context.Context, ex *Executor, op Operation[T], accept func(T) bool) (T, error) {
	var zero T

	futures := ComputeAll(ctx, ex, op)
	if len(futures) == 0 {
		return zero, nil
	}

	type outcome struct {
		val T
		err error
	}
	results := make(chan outcome, len(futures))
	for _, f := range futures {
		f := f
		go func() {
			val, err := f.Await(ctx)
			results <- outcome{val: val, err: err}
		}()
	}

	for range futures {
		select {
		case r := <-results:
			if r.err != nil {
				if !lspconn.IsRequestCancelled(r.err) {
					ex.log.WithError(r.err).Debug("server answer discarded")
				}
				continue
			}
			if accept(r.val) {
				return r.val, nil
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, nil
}

// isEmpty reports whether val carries no information: nil, or a collection
// with zero elements.
func isEmpty(val any) bool {
	if val == nil {
		return true
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
