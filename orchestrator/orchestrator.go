package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/flowkit-io/flowkit/compiler"
	"github.com/flowkit-io/flowkit/job"
)

// ExecutionResponse summarizes a pipeline run for the caller.
type ExecutionResponse struct {
	PipelineID string             `json:"pipeline_id"`
	Status     job.PipelineStatus `json:"status"`
	Summary    job.Summary        `json:"summary"`
	Error      string             `json:"error,omitempty"`
}

// Orchestrator is the strategy contract both execution modes implement.
type Orchestrator interface {
	// StartPipeline moves the pipeline into running and schedules its
	// initially ready jobs. Returns false when the pipeline cannot start
	// from its current status.
	StartPipeline(ctx context.Context, p *job.Pipeline, plan *compiler.ExecutionPlan) (bool, error)
	// ExecutePipeline runs the pipeline. The synchronous strategy blocks
	// until a terminal state; the asynchronous one starts it and reports
	// current progress.
	ExecutePipeline(ctx context.Context, p *job.Pipeline, plan *compiler.ExecutionPlan) (*ExecutionResponse, error)
	// HandleJobCompletion records a job's success and re-evaluates the
	// dependency graph for newly ready work.
	HandleJobCompletion(ctx context.Context, j *job.Job, output map[string]any) error
	// HandleJobFailure records a job's failure and applies the retry
	// decision for it.
	HandleJobFailure(ctx context.Context, j *job.Job, errorMessage string) error

	// Cancel marks the pipeline cancelled and prevents any further
	// scheduling of its jobs. In-flight jobs finish but do not fan out.
	Cancel(ctx context.Context, pipelineID string) error
	// Pause suspends further scheduling; Resume continues from the first
	// non-terminal job.
	Pause(ctx context.Context, pipelineID string) error
	Resume(ctx context.Context, pipelineID string) error
	// Reset returns a failed or cancelled pipeline and all its jobs to
	// pending for a fresh run.
	Reset(ctx context.Context, pipelineID string) error
}

// Observer receives execution events. All methods may be called from
// multiple goroutines.
type Observer interface {
	JobStarted(pipelineID, jobID, nodeID string)
	JobCompleted(pipelineID, jobID, nodeID string, elapsed time.Duration)
	JobFailed(pipelineID, jobID, nodeID string, err error)
	// JobRetried fires when a failed job is scheduled for another attempt.
	JobRetried(pipelineID, jobID, nodeID string)
	PipelineFinished(pipelineID string, status job.PipelineStatus)
}

// nopObserver is the default when no observer is attached.
type nopObserver struct{}

func (nopObserver) JobStarted(string, string, string)                  {}
func (nopObserver) JobCompleted(string, string, string, time.Duration) {}
func (nopObserver) JobFailed(string, string, string, error)            {}
func (nopObserver) JobRetried(string, string, string)                  {}
func (nopObserver) PipelineFinished(string, job.PipelineStatus)        {}

// statusIndex builds a job-id → status lookup.
func statusIndex(jobs []*job.Job) map[string]job.Status {
	m := make(map[string]job.Status, len(jobs))
	for _, j := range jobs {
		m[j.ID] = j.Status
	}
	return m
}

// readyJobs returns the pending jobs whose dependencies are all completed,
// ordered by priority (lower first) then creation order.
func readyJobs(jobs []*job.Job) []*job.Job {
	statuses := statusIndex(jobs)
	var ready []*job.Job
	for _, j := range jobs {
		if j.Status == job.StatusPending && j.ReadyAgainst(statuses) {
			ready = append(ready, j)
		}
	}
	sort.SliceStable(ready, func(a, b int) bool {
		return ready[a].Priority < ready[b].Priority
	})
	return ready
}

// summarizeResponse builds the caller-facing response from current state.
func summarizeResponse(p *job.Pipeline, jobs []*job.Job) *ExecutionResponse {
	return &ExecutionResponse{
		PipelineID: p.ID,
		Status:     p.Status,
		Summary:    job.Summarize(jobs),
		Error:      p.ErrorMessage,
	}
}
