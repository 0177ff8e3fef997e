package queue

import (
	"context"
	"testing"
	"time"
)

func TestMemoryQueueRoundTrip(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(8)
	defer q.Close()

	if err := q.Enqueue(ctx, Message{PipelineID: "p1", JobID: "j1", NodeID: "A"}); err != nil {
		t.Fatal(err)
	}

	msg, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.JobID != "j1" || msg.NodeID != "A" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt not stamped")
	}
}

func TestMemoryQueueDedup(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(8)
	defer q.Close()

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, Message{JobID: "j1"}); err != nil {
			t.Fatal(err)
		}
	}
	if q.Len() != 1 {
		t.Fatalf("resident = %d, want 1 (enqueue must be idempotent per job)", q.Len())
	}

	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatal(err)
	}

	// After delivery the job id may be enqueued again (retry).
	if err := q.Enqueue(ctx, Message{JobID: "j1", Attempt: 1}); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 1 {
		t.Errorf("re-enqueue after dequeue failed, resident = %d", q.Len())
	}
}

func TestMemoryQueueDequeueBlocksOnContext(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Dequeue(ctx); err != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestMemoryQueueClosed(t *testing.T) {
	q := NewMemoryQueue(1)
	q.Close()

	if err := q.Enqueue(context.Background(), Message{JobID: "j1"}); err == nil {
		t.Error("enqueue on closed queue must fail")
	}
}
