package job

import (
	"context"
	"sync"

	"github.com/flowkit-io/flowkit/errors"
)

// MemoryStore is an in-memory Store for tests and synchronous runs. All
// operations are guarded by a single mutex, which also makes transitions
// atomic.
type MemoryStore struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
	jobs      map[string]*Job
	// byPipeline preserves creation order per pipeline.
	byPipeline map[string][]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pipelines:  make(map[string]*Pipeline),
		jobs:       make(map[string]*Job),
		byPipeline: make(map[string][]string),
	}
}

func (s *MemoryStore) CreatePipeline(_ context.Context, p *Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pipelines[p.ID]; ok {
		return errors.AlreadyExists("pipeline")
	}
	cp := *p
	s.pipelines[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPipeline(_ context.Context, id string) (*Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[id]
	if !ok {
		return nil, errors.NotFound("pipeline", id)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) UpdatePipeline(_ context.Context, p *Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pipelines[p.ID]; !ok {
		return errors.NotFound("pipeline", p.ID)
	}
	cp := *p
	s.pipelines[p.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateJobs(_ context.Context, jobs []*Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		if _, ok := s.jobs[j.ID]; ok {
			return errors.AlreadyExists("job")
		}
	}
	for _, j := range jobs {
		cp := cloneJob(j)
		s.jobs[j.ID] = cp
		s.byPipeline[j.PipelineID] = append(s.byPipeline[j.PipelineID], j.ID)
	}
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("job", id)
	}
	return cloneJob(j), nil
}

func (s *MemoryStore) UpdateJob(_ context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; !ok {
		return errors.NotFound("job", j.ID)
	}
	s.jobs[j.ID] = cloneJob(j)
	return nil
}

func (s *MemoryStore) ListJobs(_ context.Context, pipelineID string) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPipeline[pipelineID]
	out := make([]*Job, 0, len(ids))
	for _, id := range ids {
		if j, ok := s.jobs[id]; ok {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListDependents(ctx context.Context, pipelineID, jobID string) ([]*Job, error) {
	jobs, err := s.ListJobs(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	var out []*Job
	for _, j := range jobs {
		for _, dep := range j.DependsOn {
			if dep == jobID {
				out = append(out, j)
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteJobs(_ context.Context, pipelineID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byPipeline[pipelineID]
	for _, id := range ids {
		delete(s.jobs, id)
	}
	delete(s.byPipeline, pipelineID)
	return len(ids), nil
}

func (s *MemoryStore) TransitionJob(_ context.Context, jobID string, from, to Status) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, errors.NotFound("job", jobID)
	}
	if j.Status != from {
		return nil, errors.Conflict("job " + jobID + " is " + string(j.Status) + ", expected " + string(from))
	}
	if err := j.Transition(to); err != nil {
		return nil, err
	}
	return cloneJob(j), nil
}

func cloneJob(j *Job) *Job {
	cp := *j
	if j.DependsOn != nil {
		cp.DependsOn = append([]string(nil), j.DependsOn...)
	}
	if j.InputData != nil {
		cp.InputData = make(map[string]any, len(j.InputData))
		for k, v := range j.InputData {
			cp.InputData[k] = v
		}
	}
	if j.OutputData != nil {
		cp.OutputData = make(map[string]any, len(j.OutputData))
		for k, v := range j.OutputData {
			cp.OutputData[k] = v
		}
	}
	return &cp
}

var _ Store = (*MemoryStore)(nil)
