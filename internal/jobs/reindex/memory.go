package reindex

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryQueue is a bounded in-process queue. An id already waiting is not
// queued twice.
type MemoryQueue struct {
	ch   chan uuid.UUID
	done chan struct{}

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
	closed  bool
}

var _ Queue = (*MemoryQueue)(nil)

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		ch:      make(chan uuid.UUID, capacity),
		done:    make(chan struct{}),
		pending: map[uuid.UUID]struct{}{},
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if _, ok := q.pending[id]; ok {
		q.mu.Unlock()
		return nil
	}
	q.pending[id] = struct{}{}
	q.mu.Unlock()

	select {
	case q.ch <- id:
		return nil
	case <-q.done:
		q.forget(id)
		return ErrClosed
	case <-ctx.Done():
		q.forget(id)
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	select {
	case id := <-q.ch:
		q.forget(id)
		return id, nil
	case <-q.done:
		return uuid.Nil, ErrClosed
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Len reports ids waiting.
func (q *MemoryQueue) Len() int { return len(q.ch) }

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

func (q *MemoryQueue) forget(id uuid.UUID) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
