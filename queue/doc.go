// Package queue provides the durable work queue boundary the asynchronous
// orchestrator schedules jobs through.
//
// Delivery is at-least-once; the queue is the sole serialization point
// between workers, and it provides no ordering guarantee across
// dependencies; dependency gating is the orchestrator's job. The
// in-memory implementation additionally deduplicates enqueues per job id
// so dependency re-evaluation stays idempotent; with the Kafka adapter
// the same property is enforced downstream by the job store's atomic
// status transition.
package queue
