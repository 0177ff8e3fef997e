package queue

import (
	"context"
	"sync"
	"time"

	"github.com/flowkit-io/flowkit/errors"
)

const defaultMemoryCapacity = 4096

// MemoryQueue is an in-process WorkQueue for tests and single-host runs.
// Enqueue is idempotent per job id: a job already resident in the queue is
// not enqueued twice, so concurrent dependency re-evaluation cannot
// duplicate work.
type MemoryQueue struct {
	mu       sync.Mutex
	resident map[string]bool
	ch       chan Message
	closed   bool
}

// NewMemoryQueue creates a MemoryQueue with the given capacity (0 uses a
// default).
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryQueue{
		resident: make(map[string]bool),
		ch:       make(chan Message, capacity),
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.QueueUnavailable(nil)
	}
	if q.resident[msg.JobID] {
		return nil
	}

	msg.EnqueuedAt = time.Now().UTC()
	select {
	case q.ch <- msg:
		q.resident[msg.JobID] = true
		return nil
	default:
		return errors.QueueUnavailable(nil).WithDetail("reason", "queue full")
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-q.ch:
		if !ok {
			return nil, errors.QueueUnavailable(nil)
		}
		q.mu.Lock()
		delete(q.resident, msg.JobID)
		q.mu.Unlock()
		return &msg, nil
	}
}

// Len returns the number of resident messages.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.resident)
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}

var _ WorkQueue = (*MemoryQueue)(nil)
