package job

import (
	"time"

	"github.com/flowkit-io/flowkit/errors"
)

// PipelineStatus is the lifecycle state of a pipeline run.
type PipelineStatus string

const (
	PipelinePending   PipelineStatus = "pending"
	PipelineRunning   PipelineStatus = "running"
	PipelinePaused    PipelineStatus = "paused"
	PipelineCompleted PipelineStatus = "completed"
	PipelineFailed    PipelineStatus = "failed"
	PipelineCancelled PipelineStatus = "cancelled"
)

// Terminal reports whether the status is final (absent an explicit reset).
func (s PipelineStatus) Terminal() bool {
	return s == PipelineCompleted || s == PipelineFailed || s == PipelineCancelled
}

// validPipelineTransitions encodes pending → running → terminal, with
// running ⇄ paused and failed/cancelled → pending on explicit reset.
var validPipelineTransitions = map[PipelineStatus][]PipelineStatus{
	PipelinePending:   {PipelineRunning, PipelineCancelled},
	PipelineRunning:   {PipelinePaused, PipelineCompleted, PipelineFailed, PipelineCancelled},
	PipelinePaused:    {PipelineRunning, PipelineCancelled},
	PipelineFailed:    {PipelinePending},
	PipelineCancelled: {PipelinePending},
}

// ValidPipelineTransition reports whether a pipeline may move between the
// two statuses.
func ValidPipelineTransition(from, to PipelineStatus) bool {
	for _, s := range validPipelineTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Pipeline is one run of a compiled workflow, aggregating all of its jobs.
type Pipeline struct {
	ID string `json:"id"`
	// WorkflowID identifies the graph this run was compiled from.
	WorkflowID string         `json:"workflow_id"`
	Status     PipelineStatus `json:"status"`

	ErrorMessage string `json:"error_message,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Transition moves the pipeline to a new status, stamping timestamps.
func (p *Pipeline) Transition(to PipelineStatus) error {
	if !ValidPipelineTransition(p.Status, to) {
		return errors.Conflict("pipeline " + p.ID + ": illegal transition " + string(p.Status) + " -> " + string(to))
	}
	now := time.Now().UTC()
	switch to {
	case PipelineRunning:
		if p.StartedAt == nil {
			p.StartedAt = &now
		}
	case PipelineCompleted, PipelineFailed, PipelineCancelled:
		p.CompletedAt = &now
	case PipelinePending:
		// Reset for restart.
		p.StartedAt = nil
		p.CompletedAt = nil
		p.ErrorMessage = ""
	}
	p.Status = to
	p.UpdatedAt = now
	return nil
}

// Summary is the derived job-count breakdown of a pipeline. It is computed
// on demand from the jobs and never stored.
type Summary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Summarize computes the job-count summary for a set of jobs.
func Summarize(jobs []*Job) Summary {
	s := Summary{Total: len(jobs)}
	for _, j := range jobs {
		switch j.Status {
		case StatusPending:
			s.Pending++
		case StatusRunning:
			s.Running++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
