package job

import "context"

// Store is the engine's boundary to durable job and pipeline records.
//
// TransitionJob is the concurrency keystone: it atomically moves a job
// from an expected status to a new one, failing with a conflict when the
// record has moved on, which is how single-owner execution per job is
// enforced across workers.
type Store interface {
	// CreatePipeline persists a new pipeline record.
	CreatePipeline(ctx context.Context, p *Pipeline) error
	// GetPipeline returns the pipeline or a not-found error.
	GetPipeline(ctx context.Context, id string) (*Pipeline, error)
	// UpdatePipeline persists the full pipeline record.
	UpdatePipeline(ctx context.Context, p *Pipeline) error

	// CreateJobs persists a batch of new job records.
	CreateJobs(ctx context.Context, jobs []*Job) error
	// GetJob returns the job or a not-found error.
	GetJob(ctx context.Context, id string) (*Job, error)
	// UpdateJob persists the full job record.
	UpdateJob(ctx context.Context, j *Job) error
	// ListJobs returns all jobs of a pipeline in creation order.
	ListJobs(ctx context.Context, pipelineID string) ([]*Job, error)
	// ListDependents returns the pipeline's jobs whose DependsOn contains
	// the given job id.
	ListDependents(ctx context.Context, pipelineID, jobID string) ([]*Job, error)
	// DeleteJobs removes all jobs of a pipeline and returns the count.
	DeleteJobs(ctx context.Context, pipelineID string) (int, error)

	// TransitionJob atomically moves a job from the expected status to
	// the new one and returns the updated record. A status mismatch
	// returns a conflict error and leaves the record untouched.
	TransitionJob(ctx context.Context, jobID string, from, to Status) (*Job, error)
}
