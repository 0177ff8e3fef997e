package queue

import (
	"context"
	"time"
)

// Message is one unit of scheduled work: execute one job of one pipeline.
type Message struct {
	PipelineID string `json:"pipeline_id"`
	JobID      string `json:"job_id"`
	NodeID     string `json:"node_id"`
	// Attempt counts deliveries of this job, starting at 0.
	Attempt int `json:"attempt"`
	// NotBefore delays processing for retry backoff. Workers receiving
	// the message early must wait it out before executing.
	NotBefore  *time.Time `json:"not_before,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// WorkQueue is the durable queue boundary.
type WorkQueue interface {
	// Enqueue schedules a message. Implementations may drop the message
	// as a no-op when the same job id is already queued.
	Enqueue(ctx context.Context, msg Message) error
	// Dequeue blocks until a message is available or ctx is done.
	Dequeue(ctx context.Context) (*Message, error)
	// Close releases queue resources.
	Close() error
}
