package docsync

import "sync"

// taskQueue runs enqueued functions one at a time, in enqueue order, on a
// single goroutine. It is the ordering guarantee behind every protocol send
// for a (buffer, connection) pair: a task does not start until the previous
// one has returned, regardless of how long its round-trip takes.
type taskQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Enqueue appends fn to the queue. It reports false if the queue has been
// closed, in which case fn will never run.
func (q *taskQueue) Enqueue(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
	return true
}

// Flush blocks until every task enqueued before the call has run.
func (q *taskQueue) Flush() {
	drained := make(chan struct{})
	if !q.Enqueue(func() { close(drained) }) {
		return
	}
	<-drained
}

// Close drains the already-enqueued tasks, then stops the run goroutine.
// It blocks until the drain completes and is safe to call more than once.
func (q *taskQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Signal()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *taskQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()
	}
}
