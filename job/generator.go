package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowkit-io/flowkit/compiler"
	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/logger"
)

// Generator expands a compiled execution plan into concrete job records
// for one pipeline run.
type Generator struct {
	store Store
	log   *logger.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(store Store, log *logger.Logger) *Generator {
	return &Generator{store: store, log: log.WithComponent("job.generator")}
}

// Generate creates one pending job per node in the plan's execution order,
// wiring DependsOn to the dependency nodes' job ids. Topological order
// guarantees a dependency's job exists before its dependents are built.
//
// Generation is refused when the pipeline already has jobs; callers must
// Clear first; jobs are never silently duplicated.
func (g *Generator) Generate(ctx context.Context, p *Pipeline, plan *compiler.ExecutionPlan) ([]*Job, error) {
	existing, err := g.store.ListJobs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, errors.Conflict(fmt.Sprintf("pipeline %s already has %d jobs; clear them before regenerating", p.ID, len(existing))).
			WithDetail("job_count", len(existing))
	}

	now := time.Now().UTC()
	jobs := make([]*Job, 0, len(plan.ExecutionOrder))
	jobIDByNode := make(map[string]string, len(plan.ExecutionOrder))

	for _, nodeID := range plan.ExecutionOrder {
		mapping, ok := plan.Mapping(nodeID)
		if !ok {
			return nil, errors.Internal(fmt.Sprintf("plan has no mapping for node %q", nodeID), nil)
		}

		j := &Job{
			ID:         uuid.NewString(),
			PipelineID: p.ID,
			NodeID:     nodeID,
			Status:     StatusPending,
			Priority:   configInt(mapping.Config, "priority", 0),
			MaxRetries: configInt(mapping.Config, "max_retries", DefaultMaxRetries),
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		for _, depNode := range plan.DependenciesOf(nodeID) {
			depJobID, ok := jobIDByNode[depNode]
			if !ok {
				return nil, errors.Internal(fmt.Sprintf("dependency node %q has no generated job", depNode), nil)
			}
			j.DependsOn = append(j.DependsOn, depJobID)
		}

		jobIDByNode[nodeID] = j.ID
		jobs = append(jobs, j)
	}

	if err := g.store.CreateJobs(ctx, jobs); err != nil {
		return nil, err
	}

	g.log.Info("jobs generated", logger.Fields(
		logger.FieldPipelineID, p.ID,
		"count", len(jobs),
	))
	return jobs, nil
}

// Clear deletes all jobs of a pipeline and returns the count removed.
func (g *Generator) Clear(ctx context.Context, pipelineID string) (int, error) {
	count, err := g.store.DeleteJobs(ctx, pipelineID)
	if err != nil {
		return 0, err
	}
	g.log.Info("jobs cleared", logger.Fields(
		logger.FieldPipelineID, pipelineID,
		"count", count,
	))
	return count, nil
}

// configInt reads an integer from an opaque node config, tolerating the
// numeric types JSON and YAML decoders produce.
func configInt(config map[string]any, key string, def int) int {
	v, ok := config[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}
