// Package fifo provides an unbounded FIFO that many goroutines may put to
// and get from, with bounded waits and a close that wakes every waiter.
package fifo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-collections/collections/queue"
)

var (
	ErrClosed  = errors.New("fifo: closed")
	ErrTimeout = errors.New("fifo: timeout")
)

// Queue is safe for concurrent use.
type Queue[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	ready  chan struct{} // closed and replaced whenever an item arrives
	closed bool
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: queue.New(),
		ready: make(chan struct{}),
	}
}

// Put appends v. It never blocks.
func (q *Queue[T]) Put(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items.Enqueue(v)
	close(q.ready)
	q.ready = make(chan struct{})
	return nil
}

// Get removes the oldest item. It waits up to timeout for one to arrive; a
// non-positive timeout waits until ctx ends or the queue is closed.
func (q *Queue[T]) Get(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			v := q.items.Dequeue().(T)
			q.mu.Unlock()
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ready:
		case <-expired:
			return zero, ErrTimeout
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close rejects further puts and wakes waiters. It returns the items that
// were still queued; they are removed from the queue.
func (q *Queue[T]) Close() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ready)

	var rest []T
	for q.items.Len() > 0 {
		rest = append(rest, q.items.Dequeue().(T))
	}
	return rest
}
