package bus

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrQueueFull   = errors.New("bus: queue full")
	ErrQueueClosed = errors.New("bus: queue closed")
)

// Queue is a bounded, non-blocking queue with a single consumer.
type Queue[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// TryPublish enqueues v without blocking.
func (q *Queue[T]) TryPublish(v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- v:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new values. Queued values are still delivered.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Run consumes values until the context is done or the queue is closed and
// drained. It stops early when handler returns an error.
func (q *Queue[T]) Run(ctx context.Context, handler func(T) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-q.ch:
			if !ok {
				return nil
			}
			if err := handler(v); err != nil {
				return err
			}
		}
	}
}
