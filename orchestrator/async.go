package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/flowkit-io/flowkit/compiler"
	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/job"
	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/queue"
	"github.com/flowkit-io/flowkit/runtime"
)

// redeliverHold bounds how long a worker holds a not-yet-due retry
// before returning it to the queue for other work to proceed.
const redeliverHold = 50 * time.Millisecond

// AsyncOrchestrator schedules jobs through a work queue and executes them
// on a worker pool. StartPipeline enqueues the initial ready set and
// returns; every job completion re-evaluates dependents and enqueues the
// ones that became ready. Duplicate deliveries are resolved by the
// store's atomic pending->running claim.
type AsyncOrchestrator struct {
	store    job.Store
	queue    queue.WorkQueue
	runner   *runtime.Runner
	log      *logger.Logger
	observer Observer
	backoff  BackoffConfig

	mu    sync.RWMutex
	plans map[string]*compiler.ExecutionPlan
}

// NewAsync creates an asynchronous orchestrator. A nil observer is
// replaced with a no-op; a zero backoff config with the defaults.
func NewAsync(store job.Store, q queue.WorkQueue, runner *runtime.Runner, log *logger.Logger, observer Observer, backoff BackoffConfig) *AsyncOrchestrator {
	if observer == nil {
		observer = nopObserver{}
	}
	if backoff == (BackoffConfig{}) {
		backoff = DefaultBackoffConfig()
	}
	return &AsyncOrchestrator{
		store:    store,
		queue:    q,
		runner:   runner,
		log:      log.WithComponent("orchestrator.async"),
		observer: observer,
		backoff:  backoff,
		plans:    make(map[string]*compiler.ExecutionPlan),
	}
}

// StartPipeline registers the execution plan, marks the pipeline running
// and enqueues every job whose dependency set is already satisfied.
func (a *AsyncOrchestrator) StartPipeline(ctx context.Context, p *job.Pipeline, plan *compiler.ExecutionPlan) (bool, error) {
	if p.Status == job.PipelineRunning {
		a.registerPlan(p.ID, plan)
		return false, nil
	}
	if err := p.Transition(job.PipelineRunning); err != nil {
		return false, err
	}
	if err := a.store.UpdatePipeline(ctx, p); err != nil {
		return false, err
	}
	a.registerPlan(p.ID, plan)

	if err := a.enqueueReady(ctx, p.ID); err != nil {
		return true, err
	}
	a.log.Info("pipeline started", logger.Fields(logger.FieldPipelineID, p.ID))
	return true, nil
}

// ExecutePipeline starts the pipeline and returns immediately with its
// current summary; the worker pool drives it to completion.
func (a *AsyncOrchestrator) ExecutePipeline(ctx context.Context, p *job.Pipeline, plan *compiler.ExecutionPlan) (*ExecutionResponse, error) {
	if _, err := a.StartPipeline(ctx, p, plan); err != nil {
		return nil, err
	}
	jobs, err := a.store.ListJobs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return summarizeResponse(p, jobs), nil
}

// RunWorkers runs n worker goroutines until ctx is cancelled.
func (a *AsyncOrchestrator) RunWorkers(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			a.workerLoop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (a *AsyncOrchestrator) workerLoop(ctx context.Context, id int) {
	log := a.log.WithFields(logger.Fields("worker", id))
	for {
		msg, err := a.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("dequeue failed", logger.ErrorFields("dequeue", err))
			continue
		}
		a.process(ctx, msg)
	}
}

func (a *AsyncOrchestrator) process(ctx context.Context, msg *queue.Message) {
	if msg.NotBefore != nil {
		if wait := time.Until(*msg.NotBefore); wait > 0 {
			// A not-yet-due retry must not pin the worker for its whole
			// delay; hold it briefly, then hand it back to the queue.
			select {
			case <-ctx.Done():
				return
			case <-time.After(min(wait, redeliverHold)):
			}
			if time.Until(*msg.NotBefore) > 0 {
				if err := a.queue.Enqueue(ctx, *msg); err != nil {
					a.log.Warn("redeliver failed", logger.ErrorFields("enqueue", err))
				}
				return
			}
		}
	}

	p, err := a.store.GetPipeline(ctx, msg.PipelineID)
	if err != nil {
		a.log.Error("pipeline lookup failed", logger.ErrorFields("get_pipeline", err))
		return
	}
	switch p.Status {
	case job.PipelineCancelled:
		_, _ = a.store.TransitionJob(ctx, msg.JobID, job.StatusPending, job.StatusCancelled)
		return
	case job.PipelinePaused:
		a.requeue(ctx, msg, a.backoff.Initial)
		return
	}

	plan := a.plan(msg.PipelineID)
	if plan == nil {
		a.log.Error("no execution plan registered", logger.Fields(
			logger.FieldPipelineID, msg.PipelineID,
			logger.FieldJobID, msg.JobID,
		))
		return
	}

	// Claim. A concurrent or repeated delivery loses the transition and
	// is dropped here.
	running, err := a.store.TransitionJob(ctx, msg.JobID, job.StatusPending, job.StatusRunning)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeConflict) || errors.HasCode(err, errors.ErrCodeLockContention) {
			return
		}
		a.log.Error("job claim failed", logger.ErrorFields("claim", err))
		return
	}
	a.observer.JobStarted(running.PipelineID, running.ID, running.NodeID)

	jobs, err := a.store.ListJobs(ctx, running.PipelineID)
	if err != nil {
		a.failJob(ctx, running, err)
		return
	}
	running.InputData = mergeInputs(plan, running.NodeID, jobsByNodeID(jobs))
	if err := a.store.UpdateJob(ctx, running); err != nil {
		a.failJob(ctx, running, err)
		return
	}

	mapping, ok := plan.Mapping(running.NodeID)
	if !ok {
		a.failJob(ctx, running, errors.Orchestration("node "+running.NodeID+" has no mapping in the execution plan"))
		return
	}

	res, err := a.runner.ExecuteNode(ctx, running.ID, mapping, running.InputData)
	if err != nil {
		a.failJob(ctx, running, err)
		return
	}

	if err := a.HandleJobCompletion(ctx, running, res.Outputs); err != nil {
		a.log.Error("completion handling failed", logger.ErrorFields("complete", err))
		return
	}
	a.observer.JobCompleted(running.PipelineID, running.ID, running.NodeID, res.Elapsed)
}

// HandleJobCompletion persists outputs, marks the job completed and
// enqueues every dependent that just became ready. On a cancelled
// pipeline the result is kept but nothing further is scheduled.
func (a *AsyncOrchestrator) HandleJobCompletion(ctx context.Context, j *job.Job, output map[string]any) error {
	j.OutputData = output
	if err := a.store.UpdateJob(ctx, j); err != nil {
		return err
	}
	if _, err := a.store.TransitionJob(ctx, j.ID, job.StatusRunning, job.StatusCompleted); err != nil {
		return err
	}
	a.log.Info("job completed", logger.JobFields(j.PipelineID, j.ID, j.NodeID))

	p, err := a.store.GetPipeline(ctx, j.PipelineID)
	if err != nil {
		return err
	}
	if p.Status != job.PipelineCancelled {
		jobs, err := a.store.ListJobs(ctx, j.PipelineID)
		if err != nil {
			return err
		}
		index := statusIndex(jobs)
		dependents, err := a.store.ListDependents(ctx, j.PipelineID, j.ID)
		if err != nil {
			return err
		}
		for _, dep := range dependents {
			if dep.Status == job.StatusPending && dep.ReadyAgainst(index) {
				if err := a.enqueueJob(ctx, dep, nil); err != nil {
					return err
				}
			}
		}
	}
	return a.finalizeIfDone(ctx, j.PipelineID)
}

// HandleJobFailure applies the retry decision: requeue schedules another
// attempt with backoff, suspend cancels the dependents for good.
func (a *AsyncOrchestrator) HandleJobFailure(ctx context.Context, j *job.Job, errorMessage string) error {
	return a.handleFailure(ctx, j, nil, errorMessage)
}

func (a *AsyncOrchestrator) failJob(ctx context.Context, j *job.Job, cause error) {
	if err := a.handleFailure(ctx, j, cause, cause.Error()); err != nil {
		a.log.Error("failure handling failed", logger.ErrorFields("fail", err))
	}
}

func (a *AsyncOrchestrator) handleFailure(ctx context.Context, j *job.Job, cause error, errorMessage string) error {
	failed, err := a.store.TransitionJob(ctx, j.ID, job.StatusRunning, job.StatusFailed)
	if err != nil {
		return err
	}
	failed.ErrorMessage = errorMessage
	if err := a.store.UpdateJob(ctx, failed); err != nil {
		return err
	}
	a.observer.JobFailed(failed.PipelineID, failed.ID, failed.NodeID, cause)

	decision := Classify(failed, cause, errorMessage)
	a.log.Warn("job failed", logger.Fields(
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
			if err := a.store.UpdateJob(ctx, failed); err != nil {
				return err
			}
			a.observer.JobRetried(failed.PipelineID, failed.ID, failed.NodeID)
			delay := time.Now().Add(a.backoff.Delay(failed.RetryCount))
			return a.enqueueJob(ctx, failed, &delay)
		}
		fallthrough
	case Suspend:
		if err := cancelDependents(ctx, a.store, failed); err != nil {
			return err
		}
	}
	return a.finalizeIfDone(ctx, failed.PipelineID)
}

// finalizeIfDone resolves the pipeline once no job can still make
// progress. Failed jobs make the whole run failed while completed
// branches keep their outputs.
func (a *AsyncOrchestrator) finalizeIfDone(ctx context.Context, pipelineID string) error {
	jobs, err := a.store.ListJobs(ctx, pipelineID)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if !j.Status.Terminal() {
			return nil
		}
	}

	p, err := a.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if p.Status != job.PipelineRunning {
		return nil
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
	if err := p.Transition(target); err != nil {
		return err
	}
	if err := a.store.UpdatePipeline(ctx, p); err != nil {
		return err
	}
	a.dropPlan(pipelineID)

	a.observer.PipelineFinished(p.ID, p.Status)
	a.log.Info("pipeline finished", logger.Fields(
		logger.FieldPipelineID, p.ID,
		logger.FieldStatus, string(p.Status),
		"completed", summary.Completed,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
	))
	return nil
}

func (a *AsyncOrchestrator) Cancel(ctx context.Context, pipelineID string) error {
	if err := cancelPipeline(ctx, a.store, pipelineID); err != nil {
		return err
	}
	a.dropPlan(pipelineID)
	return nil
}

func (a *AsyncOrchestrator) Pause(ctx context.Context, pipelineID string) error {
	return transitionPipeline(ctx, a.store, pipelineID, job.PipelinePaused)
}

// Resume returns a paused pipeline to running and re-enqueues the ready
// set, since messages may have been consumed while paused.
func (a *AsyncOrchestrator) Resume(ctx context.Context, pipelineID string) error {
	if err := transitionPipeline(ctx, a.store, pipelineID, job.PipelineRunning); err != nil {
		return err
	}
	return a.enqueueReady(ctx, pipelineID)
}

func (a *AsyncOrchestrator) Reset(ctx context.Context, pipelineID string) error {
	return resetPipeline(ctx, a.store, pipelineID)
}

func (a *AsyncOrchestrator) enqueueReady(ctx context.Context, pipelineID string) error {
	jobs, err := a.store.ListJobs(ctx, pipelineID)
	if err != nil {
		return err
	}
	for _, j := range readyJobs(jobs) {
		if err := a.enqueueJob(ctx, j, nil); err != nil {
			return err
		}
	}
	return nil
}

func (a *AsyncOrchestrator) enqueueJob(ctx context.Context, j *job.Job, notBefore *time.Time) error {
	return a.queue.Enqueue(ctx, queue.Message{
		PipelineID: j.PipelineID,
		JobID:      j.ID,
		NodeID:     j.NodeID,
		Attempt:    j.RetryCount,
		NotBefore:  notBefore,
		EnqueuedAt: time.Now().UTC(),
	})
}

func (a *AsyncOrchestrator) requeue(ctx context.Context, msg *queue.Message, delay time.Duration) {
	later := time.Now().Add(delay)
	msg.NotBefore = &later
	if err := a.queue.Enqueue(ctx, *msg); err != nil {
		a.log.Warn("requeue failed", logger.ErrorFields("enqueue", err))
	}
}

func (a *AsyncOrchestrator) registerPlan(pipelineID string, plan *compiler.ExecutionPlan) {
	a.mu.Lock()
	a.plans[pipelineID] = plan
	a.mu.Unlock()
}

func (a *AsyncOrchestrator) plan(pipelineID string) *compiler.ExecutionPlan {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.plans[pipelineID]
}

func (a *AsyncOrchestrator) dropPlan(pipelineID string) {
	a.mu.Lock()
	delete(a.plans, pipelineID)
	a.mu.Unlock()
}

var _ Orchestrator = (*AsyncOrchestrator)(nil)
