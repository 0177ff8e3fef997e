package job

import (
	"time"

	"github.com/flowkit-io/flowkit/errors"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// DefaultMaxRetries is the retry budget applied when a node's config does
// not declare one.
const DefaultMaxRetries = 3

// validJobTransitions encodes pending → running → terminal, with
// failed → pending reserved for retries.
var validJobTransitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:  {StatusPending},
}

// ValidTransition reports whether a job may move from one status to another.
func ValidTransition(from, to Status) bool {
	for _, s := range validJobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job represents one node instance within one pipeline run. It is mutated
// only by the orchestrator and node runtime during execution; exactly one
// worker owns a job at a time (enforced by the store's transition
// semantics).
type Job struct {
	ID         string `json:"id"`
	PipelineID string `json:"pipeline_id"`
	// NodeID is the graph node this job executes.
	NodeID string `json:"node_id"`
	Status Status `json:"status"`
	// Priority orders ready jobs; lower value means higher priority.
	Priority int `json:"priority"`

	InputData    map[string]any `json:"input_data,omitempty"`
	OutputData   map[string]any `json:"output_data,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// DependsOn lists job ids that must reach completed before this job
	// may start.
	DependsOn []string `json:"depends_on,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanRetry reports whether the job has retry budget left.
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// Transition moves the job to a new status, stamping timestamps. Illegal
// transitions return a conflict error.
func (j *Job) Transition(to Status) error {
	if !ValidTransition(j.Status, to) {
		return errors.Conflict("job " + j.ID + ": illegal transition " + string(j.Status) + " -> " + string(to))
	}
	now := time.Now().UTC()
	switch to {
	case StatusRunning:
		j.StartedAt = &now
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = &now
	}
	j.Status = to
	j.UpdatedAt = now
	return nil
}

// Retry consumes one unit of retry budget and resets the job to pending.
// Returns false without mutating when the budget is exhausted.
func (j *Job) Retry() bool {
	if !j.CanRetry() {
		return false
	}
	j.RetryCount++
	j.Status = StatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.UpdatedAt = time.Now().UTC()
	return true
}

// Reset returns the job to its freshly generated state for a pipeline
// restart.
func (j *Job) Reset() {
	j.Status = StatusPending
	j.RetryCount = 0
	j.InputData = nil
	j.OutputData = nil
	j.ErrorMessage = ""
	j.StartedAt = nil
	j.CompletedAt = nil
	j.UpdatedAt = time.Now().UTC()
}

// ReadyAgainst reports whether every dependency of the job is completed in
// the given status lookup. A job with no dependencies is always ready.
func (j *Job) ReadyAgainst(statusByID map[string]Status) bool {
	for _, dep := range j.DependsOn {
		if statusByID[dep] != StatusCompleted {
			return false
		}
	}
	return true
}
