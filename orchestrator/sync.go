package orchestrator

import (
	"context"

	"github.com/flowkit-io/flowkit/compiler"
	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/job"
	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/runtime"
)

// SyncOrchestrator executes all ready jobs inline, one at a time, blocking
// the caller until the whole pipeline reaches a terminal state. Single
// threaded and cooperative: it only blocks inside processor calls.
type SyncOrchestrator struct {
	store    job.Store
	runner   *runtime.Runner
	log      *logger.Logger
	observer Observer
}

// NewSync creates a synchronous orchestrator. A nil observer is replaced
// with a no-op.
func NewSync(store job.Store, runner *runtime.Runner, log *logger.Logger, observer Observer) *SyncOrchestrator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &SyncOrchestrator{
		store:    store,
		runner:   runner,
		log:      log.WithComponent("orchestrator.sync"),
		observer: observer,
	}
}

func (s *SyncOrchestrator) StartPipeline(ctx context.Context, p *job.Pipeline, _ *compiler.ExecutionPlan) (bool, error) {
	if p.Status == job.PipelineRunning {
		return false, nil
	}
	if err := p.Transition(job.PipelineRunning); err != nil {
		return false, err
	}
	if err := s.store.UpdatePipeline(ctx, p); err != nil {
		return false, err
	}
	s.log.Info("pipeline started", logger.Fields(logger.FieldPipelineID, p.ID))
	return true, nil
}

// ExecutePipeline drives the run loop to a terminal or paused state. A
// pipeline already running (resume path) re-enters the loop at the first
// non-terminal job.
func (s *SyncOrchestrator) ExecutePipeline(ctx context.Context, p *job.Pipeline, plan *compiler.ExecutionPlan) (*ExecutionResponse, error) {
	if p.Status != job.PipelineRunning {
		if _, err := s.StartPipeline(ctx, p, plan); err != nil {
			return nil, err
		}
	}
	return s.runLoop(ctx, p.ID, plan)
}

func (s *SyncOrchestrator) runLoop(ctx context.Context, pipelineID string, plan *compiler.ExecutionPlan) (*ExecutionResponse, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := s.store.GetPipeline(ctx, pipelineID)
		if err != nil {
			return nil, err
		}

		jobs, err := s.store.ListJobs(ctx, pipelineID)
		if err != nil {
			return nil, err
		}

		switch p.Status {
		case job.PipelinePaused:
			return summarizeResponse(p, jobs), nil
		case job.PipelineCancelled:
			s.cancelPending(ctx, jobs)
			jobs, _ = s.store.ListJobs(ctx, pipelineID)
			return summarizeResponse(p, jobs), nil
		}

		ready := readyJobs(jobs)
		if len(ready) == 0 {
			return s.finalize(ctx, p, jobs)
		}

		s.executeJob(ctx, plan, ready[0], jobs)
	}
}

func (s *SyncOrchestrator) executeJob(ctx context.Context, plan *compiler.ExecutionPlan, j *job.Job, jobs []*job.Job) {
	running, err := s.store.TransitionJob(ctx, j.ID, job.StatusPending, job.StatusRunning)
	if err != nil {
		s.log.Warn("job claim failed", logger.ErrorFields("transition", err))
		return
	}
	s.observer.JobStarted(running.PipelineID, running.ID, running.NodeID)

	running.InputData = mergeInputs(plan, running.NodeID, jobsByNodeID(jobs))
	if err := s.store.UpdateJob(ctx, running); err != nil {
		s.failJob(ctx, running, err)
		return
	}

	mapping, ok := plan.Mapping(running.NodeID)
	if !ok {
		s.failJob(ctx, running, errors.Orchestration("node "+running.NodeID+" has no mapping in the execution plan"))
		return
	}

	res, err := s.runner.ExecuteNode(ctx, running.ID, mapping, running.InputData)
	if err != nil {
		s.failJob(ctx, running, err)
		return
	}

	if err := s.HandleJobCompletion(ctx, running, res.Outputs); err != nil {
		s.log.Error("completion handling failed", logger.ErrorFields("complete", err))
		return
	}
	s.observer.JobCompleted(running.PipelineID, running.ID, running.NodeID, res.Elapsed)
}

// HandleJobCompletion persists the job's outputs and marks it completed.
// The run loop itself performs dependency re-evaluation on its next pass.
func (s *SyncOrchestrator) HandleJobCompletion(ctx context.Context, j *job.Job, output map[string]any) error {
	j.OutputData = output
	if err := s.store.UpdateJob(ctx, j); err != nil {
		return err
	}
	if _, err := s.store.TransitionJob(ctx, j.ID, job.StatusRunning, job.StatusCompleted); err != nil {
		return err
	}
	s.log.Info("job completed", logger.JobFields(j.PipelineID, j.ID, j.NodeID))
	return nil
}

// HandleJobFailure applies the retry decision for a failed job: requeue
// resets it to pending for the next loop pass, suspend cancels its
// dependents and leaves it failed.
func (s *SyncOrchestrator) HandleJobFailure(ctx context.Context, j *job.Job, errorMessage string) error {
	return s.handleFailure(ctx, j, nil, errorMessage)
}

func (s *SyncOrchestrator) failJob(ctx context.Context, j *job.Job, cause error) {
	if err := s.handleFailure(ctx, j, cause, cause.Error()); err != nil {
		s.log.Error("failure handling failed", logger.ErrorFields("fail", err))
	}
}

func (s *SyncOrchestrator) handleFailure(ctx context.Context, j *job.Job, cause error, errorMessage string) error {
	failed, err := s.store.TransitionJob(ctx, j.ID, job.StatusRunning, job.StatusFailed)
	if err != nil {
		return err
	}
	failed.ErrorMessage = errorMessage
	if err := s.store.UpdateJob(ctx, failed); err != nil {
		return err
	}
	s.observer.JobFailed(failed.PipelineID, failed.ID, failed.NodeID, cause)

	decision := Classify(failed, cause, errorMessage)
	s.log.Warn("job failed", logger.Fields(
		logger.FieldPipelineID, failed.PipelineID,
		logger.FieldJobID, failed.ID,
		logger.FieldNodeID, failed.NodeID,
		logger.FieldError, errorMessage,
		logger.FieldRetryCount, failed.RetryCount,
		"decision", decision.String(),
	))

	switch decision {
	case Requeue:
		if failed.Retry() {
			if err := s.store.UpdateJob(ctx, failed); err != nil {
				return err
			}
			s.observer.JobRetried(failed.PipelineID, failed.ID, failed.NodeID)
			return nil
		}
		fallthrough
	case Suspend:
		return cancelDependents(ctx, s.store, failed)
	}
	return nil
}

func (s *SyncOrchestrator) cancelPending(ctx context.Context, jobs []*job.Job) {
	for _, j := range jobs {
		if j.Status == job.StatusPending {
			_, _ = s.store.TransitionJob(ctx, j.ID, job.StatusPending, job.StatusCancelled)
		}
	}
}

// finalize resolves the pipeline to a terminal status once no job is
// ready: blocked pending jobs are cancelled, and any failed job makes the
// overall run failed while preserving every completed job's output.
func (s *SyncOrchestrator) finalize(ctx context.Context, p *job.Pipeline, jobs []*job.Job) (*ExecutionResponse, error) {
	for _, j := range jobs {
		if j.Status == job.StatusPending {
			_, _ = s.store.TransitionJob(ctx, j.ID, job.StatusPending, job.StatusCancelled)
		}
	}

	jobs, err := s.store.ListJobs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	summary := job.Summarize(jobs)

	target := job.PipelineCompleted
	if summary.Failed > 0 {
		target = job.PipelineFailed
		for _, j := range jobs {
			if j.Status == job.StatusFailed && j.ErrorMessage != "" {
				p.ErrorMessage = j.ErrorMessage
				break
			}
		}
	}

	if p.Status == job.PipelineRunning {
		if err := p.Transition(target); err != nil {
			return nil, err
		}
		if err := s.store.UpdatePipeline(ctx, p); err != nil {
			return nil, err
		}
	}

	s.observer.PipelineFinished(p.ID, p.Status)
	s.log.Info("pipeline finished", logger.Fields(
		logger.FieldPipelineID, p.ID,
		logger.FieldStatus, string(p.Status),
		"completed", summary.Completed,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
	))

	return summarizeResponse(p, jobs), nil
}

func (s *SyncOrchestrator) Cancel(ctx context.Context, pipelineID string) error {
	return cancelPipeline(ctx, s.store, pipelineID)
}

func (s *SyncOrchestrator) Pause(ctx context.Context, pipelineID string) error {
	return transitionPipeline(ctx, s.store, pipelineID, job.PipelinePaused)
}

func (s *SyncOrchestrator) Resume(ctx context.Context, pipelineID string) error {
	return transitionPipeline(ctx, s.store, pipelineID, job.PipelineRunning)
}

func (s *SyncOrchestrator) Reset(ctx context.Context, pipelineID string) error {
	return resetPipeline(ctx, s.store, pipelineID)
}

var _ Orchestrator = (*SyncOrchestrator)(nil)
