package job

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/logger"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "fktest", logger.Nop())
}

func TestRedisStorePipelineCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	p := &Pipeline{ID: "p1", WorkflowID: "wf", Status: PipelinePending}
	if err := store.CreatePipeline(ctx, p); err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}

	if err := store.CreatePipeline(ctx, p); !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("duplicate create = %v, want already exists", err)
	}

	got, err := store.GetPipeline(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	if got.WorkflowID != "wf" || got.Status != PipelinePending {
		t.Errorf("pipeline = %+v", got)
	}

	got.Status = PipelineRunning
	if err := store.UpdatePipeline(ctx, got); err != nil {
		t.Fatalf("UpdatePipeline: %v", err)
	}
	got, _ = store.GetPipeline(ctx, "p1")
	if got.Status != PipelineRunning {
		t.Errorf("status = %s after update", got.Status)
	}

	if _, err := store.GetPipeline(ctx, "ghost"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("missing pipeline = %v, want not found", err)
	}
}

func TestRedisStoreJobs(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	jobs := []*Job{
		{ID: "j1", PipelineID: "p1", NodeID: "A", Status: StatusPending, MaxRetries: 3},
		{ID: "j2", PipelineID: "p1", NodeID: "B", Status: StatusPending, MaxRetries: 3, DependsOn: []string{"j1"}},
		{ID: "j3", PipelineID: "p1", NodeID: "C", Status: StatusPending, MaxRetries: 3, DependsOn: []string{"j1", "j2"}},
	}
	if err := store.CreateJobs(ctx, jobs); err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}

	listed, err := store.ListJobs(ctx, "p1")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(listed) != 3 || listed[0].NodeID != "A" || listed[2].NodeID != "C" {
		t.Errorf("listed jobs out of order: %+v", listed)
	}

	deps, err := store.ListDependents(ctx, "p1", "j1")
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 {
		t.Errorf("dependents of j1 = %d, want 2", len(deps))
	}

	count, err := store.DeleteJobs(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("deleted %d, want 3", count)
	}
	if listed, _ := store.ListJobs(ctx, "p1"); len(listed) != 0 {
		t.Errorf("jobs survived deletion: %d", len(listed))
	}
}

func TestRedisStoreTransition(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	if err := store.CreateJobs(ctx, []*Job{
		{ID: "j1", PipelineID: "p1", NodeID: "A", Status: StatusPending, MaxRetries: 3},
	}); err != nil {
		t.Fatal(err)
	}

	updated, err := store.TransitionJob(ctx, "j1", StatusPending, StatusRunning)
	if err != nil {
		t.Fatalf("TransitionJob: %v", err)
	}
	if updated.Status != StatusRunning || updated.StartedAt == nil {
		t.Errorf("updated = %+v", updated)
	}

	// A second worker expecting pending loses the race.
	if _, err := store.TransitionJob(ctx, "j1", StatusPending, StatusRunning); !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("stale transition = %v, want conflict", err)
	}

	if _, err := store.TransitionJob(ctx, "ghost", StatusPending, StatusRunning); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("missing job = %v, want not found", err)
	}
}

func TestMemoryStoreTransitionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.CreateJobs(ctx, []*Job{
		{ID: "j1", PipelineID: "p1", NodeID: "A", Status: StatusPending, MaxRetries: 3},
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := store.TransitionJob(ctx, "j1", StatusPending, StatusRunning); err != nil {
		t.Fatal(err)
	}
	if _, err := store.TransitionJob(ctx, "j1", StatusPending, StatusRunning); !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("stale transition = %v, want conflict", err)
	}
}
