package job

import (
	"context"
	"testing"

	"github.com/flowkit-io/flowkit/compiler"
	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/graph"
	"github.com/flowkit-io/flowkit/logger"
)

func compileChain(t *testing.T, nodeIDs []string, edges [][2]string) *compiler.ExecutionPlan {
	t.Helper()
	nodes := make([]graph.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		nodes = append(nodes, graph.Node{ID: id, ProcessorType: "echo"})
	}
	ges := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		ges = append(ges, graph.Edge{Source: e[0], Target: e[1]})
	}
	plan, err := compiler.New(logger.Nop()).Compile(graph.Build("wf", nodes, ges))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return plan
}

func TestGenerateWiresDependencies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gen := NewGenerator(store, logger.Nop())

	plan := compileChain(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}})
	p := &Pipeline{ID: "p1", WorkflowID: "wf", Status: PipelinePending}

	jobs, err := gen.Generate(ctx, p, plan)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("generated %d jobs, want 3", len(jobs))
	}

	byNode := make(map[string]*Job)
	for _, j := range jobs {
		byNode[j.NodeID] = j
		if j.Status != StatusPending {
			t.Errorf("job %s status = %s, want pending", j.NodeID, j.Status)
		}
		if j.MaxRetries != DefaultMaxRetries {
			t.Errorf("job %s maxRetries = %d, want %d", j.NodeID, j.MaxRetries, DefaultMaxRetries)
		}
	}

	if len(byNode["A"].DependsOn) != 0 {
		t.Errorf("A dependsOn = %v", byNode["A"].DependsOn)
	}
	if got := byNode["B"].DependsOn; len(got) != 1 || got[0] != byNode["A"].ID {
		t.Errorf("B dependsOn = %v, want [%s]", got, byNode["A"].ID)
	}
	if got := byNode["C"].DependsOn; len(got) != 1 || got[0] != byNode["B"].ID {
		t.Errorf("C dependsOn = %v, want [%s]", got, byNode["B"].ID)
	}
}

func TestGenerateDiamond(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(NewMemoryStore(), logger.Nop())

	plan := compileChain(t, []string{"A", "B", "C", "D"},
		[][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}})
	p := &Pipeline{ID: "p1", Status: PipelinePending}

	jobs, err := gen.Generate(ctx, p, plan)
	if err != nil {
		t.Fatal(err)
	}

	byNode := make(map[string]*Job)
	for _, j := range jobs {
		byNode[j.NodeID] = j
	}

	d := byNode["D"]
	if len(d.DependsOn) != 2 {
		t.Fatalf("D dependsOn = %v, want both B and C", d.DependsOn)
	}
	want := map[string]bool{byNode["B"].ID: true, byNode["C"].ID: true}
	for _, dep := range d.DependsOn {
		if !want[dep] {
			t.Errorf("unexpected dependency %s", dep)
		}
	}
}

func TestGenerateRefusesDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gen := NewGenerator(store, logger.Nop())

	plan := compileChain(t, []string{"A"}, nil)
	p := &Pipeline{ID: "p1", Status: PipelinePending}

	if _, err := gen.Generate(ctx, p, plan); err != nil {
		t.Fatal(err)
	}

	_, err := gen.Generate(ctx, p, plan)
	if err == nil {
		t.Fatal("second Generate must be refused")
	}
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("error = %v, want conflict", err)
	}

	jobs, _ := store.ListJobs(ctx, "p1")
	if len(jobs) != 1 {
		t.Errorf("jobs were duplicated: %d", len(jobs))
	}
}

func TestClearReturnsCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gen := NewGenerator(store, logger.Nop())

	plan := compileChain(t, []string{"A", "B"}, [][2]string{{"A", "B"}})
	p := &Pipeline{ID: "p1", Status: PipelinePending}

	if _, err := gen.Generate(ctx, p, plan); err != nil {
		t.Fatal(err)
	}

	count, err := gen.Clear(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("cleared %d jobs, want 2", count)
	}

	// Regeneration succeeds after clearing.
	if _, err := gen.Generate(ctx, p, plan); err != nil {
		t.Errorf("regeneration after clear: %v", err)
	}
}

func TestGeneratePriorityFromConfig(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(NewMemoryStore(), logger.Nop())

	g := graph.Build("wf", []graph.Node{
		{ID: "A", ProcessorType: "echo", Config: map[string]any{"priority": float64(5), "max_retries": float64(1)}},
	}, nil)
	plan, err := compiler.New(logger.Nop()).Compile(g)
	if err != nil {
		t.Fatal(err)
	}

	jobs, err := gen.Generate(ctx, &Pipeline{ID: "p1"}, plan)
	if err != nil {
		t.Fatal(err)
	}
	if jobs[0].Priority != 5 {
		t.Errorf("priority = %d, want 5", jobs[0].Priority)
	}
	if jobs[0].MaxRetries != 1 {
		t.Errorf("maxRetries = %d, want 1", jobs[0].MaxRetries)
	}
}
