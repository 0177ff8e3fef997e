package orchestrator

import (
	"context"

	"github.com/flowkit-io/flowkit/job"
)

// transitionPipeline applies a single status transition and persists it.
func transitionPipeline(ctx context.Context, store job.Store, pipelineID string, to job.PipelineStatus) error {
	p, err := store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if err := p.Transition(to); err != nil {
		return err
	}
	return store.UpdatePipeline(ctx, p)
}

// cancelPipeline marks the pipeline cancelled and cancels every job that
// has not started yet. Running jobs are left to finish; their results are
// kept but no successor is scheduled afterwards.
func cancelPipeline(ctx context.Context, store job.Store, pipelineID string) error {
	if err := transitionPipeline(ctx, store, pipelineID, job.PipelineCancelled); err != nil {
		return err
	}
	jobs, err := store.ListJobs(ctx, pipelineID)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if j.Status == job.StatusPending {
			if _, err := store.TransitionJob(ctx, j.ID, job.StatusPending, job.StatusCancelled); err != nil {
				return err
			}
		}
	}
	return nil
}

// cancelDependents transitively cancels pending jobs downstream of a
// permanently failed one. They must never run with missing inputs.
func cancelDependents(ctx context.Context, store job.Store, j *job.Job) error {
	dependents, err := store.ListDependents(ctx, j.PipelineID, j.ID)
	if err != nil {
		return err
	}
	for _, dep := range dependents {
		if dep.Status != job.StatusPending {
			continue
		}
		cancelled, err := store.TransitionJob(ctx, dep.ID, job.StatusPending, job.StatusCancelled)
		if err != nil {
			continue
		}
		if err := cancelDependents(ctx, store, cancelled); err != nil {
			return err
		}
	}
	return nil
}

// resetPipeline returns a failed or cancelled pipeline to pending and
// clears every job back to its initial state so the run can start over.
func resetPipeline(ctx context.Context, store job.Store, pipelineID string) error {
	if err := transitionPipeline(ctx, store, pipelineID, job.PipelinePending); err != nil {
		return err
	}
	jobs, err := store.ListJobs(ctx, pipelineID)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		j.Reset()
		if err := store.UpdateJob(ctx, j); err != nil {
			return err
		}
	}
	return nil
}
