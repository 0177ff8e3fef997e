package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowkit-io/flowkit/compiler"
	fkerrors "github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/graph"
	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/processor"
)

// funcProcessor is a minimal Processor for tests.
type funcProcessor struct {
	typ      string
	fn       func(ctx context.Context, inputs, config map[string]any) (map[string]any, error)
	validate func(inputs map[string]any) bool
}

func (p *funcProcessor) Type() string { return p.typ }
func (p *funcProcessor) Process(ctx context.Context, inputs, config map[string]any) (map[string]any, error) {
	return p.fn(ctx, inputs, config)
}
func (p *funcProcessor) ValidateInputs(inputs map[string]any) bool {
	if p.validate == nil {
		return true
	}
	return p.validate(inputs)
}
func (p *funcProcessor) InputSchema() []graph.Port    { return nil }
func (p *funcProcessor) OutputSchema() []graph.Port   { return nil }
func (p *funcProcessor) ConfigSchema() map[string]any { return nil }

func newTestRunner(procs ...processor.Processor) *Runner {
	r := processor.NewRegistry()
	for _, p := range procs {
		r.Register(p)
	}
	return NewRunner(r, logger.Nop(), time.Second)
}

func TestExecuteNodeSuccess(t *testing.T) {
	runner := newTestRunner(&funcProcessor{
		typ: "double",
		fn: func(_ context.Context, inputs, _ map[string]any) (map[string]any, error) {
			n, _ := inputs["n"].(int)
			return map[string]any{"result": n * 2}, nil
		},
	})

	res, err := runner.ExecuteNode(context.Background(), "j1",
		compiler.NodeMapping{NodeID: "n1", ProcessorType: "double"},
		map[string]any{"n": 21})
	if err != nil {
		t.Fatalf("ExecuteNode: %v", err)
	}
	if res.Outputs["result"] != 42 {
		t.Errorf("outputs = %v", res.Outputs)
	}
	if res.Elapsed < 0 || res.FinishedAt.IsZero() {
		t.Errorf("metadata missing: %+v", res)
	}
}

func TestExecuteNodeUnknownProcessor(t *testing.T) {
	runner := newTestRunner()

	_, err := runner.ExecuteNode(context.Background(), "j1",
		compiler.NodeMapping{NodeID: "n1", ProcessorType: "ghost"}, nil)
	if !fkerrors.HasCode(err, fkerrors.ErrCodeProcessorNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestExecuteNodeInputValidation(t *testing.T) {
	runner := newTestRunner(&funcProcessor{
		typ:      "strict",
		fn:       func(_ context.Context, _, _ map[string]any) (map[string]any, error) { return nil, nil },
		validate: func(inputs map[string]any) bool { _, ok := inputs["required"]; return ok },
	})

	_, err := runner.ExecuteNode(context.Background(), "j1",
		compiler.NodeMapping{NodeID: "n1", ProcessorType: "strict"},
		map[string]any{"other": 1})
	if !fkerrors.HasCode(err, fkerrors.ErrCodeDataFlowMismatch) {
		t.Errorf("err = %v", err)
	}
}

func TestExecuteNodeWrapsProcessorError(t *testing.T) {
	boom := errors.New("downstream exploded")
	runner := newTestRunner(&funcProcessor{
		typ: "boom",
		fn: func(_ context.Context, _, _ map[string]any) (map[string]any, error) {
			return nil, boom
		},
	})

	_, err := runner.ExecuteNode(context.Background(), "j1",
		compiler.NodeMapping{NodeID: "n1", ProcessorType: "boom"}, nil)
	if !fkerrors.HasCode(err, fkerrors.ErrCodeNodeExecutionFailed) {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("original cause not preserved")
	}
	appErr, _ := fkerrors.AsAppError(err)
	if appErr.Details["node_id"] != "n1" || appErr.Details["job_id"] != "j1" {
		t.Errorf("context missing: %v", appErr.Details)
	}
}

func TestExecuteNodeRecoversPanic(t *testing.T) {
	runner := newTestRunner(&funcProcessor{
		typ: "panicky",
		fn: func(_ context.Context, _, _ map[string]any) (map[string]any, error) {
			panic("kaboom")
		},
	})

	_, err := runner.ExecuteNode(context.Background(), "j1",
		compiler.NodeMapping{NodeID: "n1", ProcessorType: "panicky"}, nil)
	if !fkerrors.HasCode(err, fkerrors.ErrCodeNodeExecutionFailed) {
		t.Errorf("panic should surface as node execution error, got %v", err)
	}
}

func TestExecuteNodeTimeout(t *testing.T) {
	runner := newTestRunner(&funcProcessor{
		typ: "slow",
		fn: func(ctx context.Context, _, _ map[string]any) (map[string]any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return map[string]any{}, nil
			}
		},
	})

	_, err := runner.ExecuteNode(context.Background(), "j1",
		compiler.NodeMapping{
			NodeID:        "n1",
			ProcessorType: "slow",
			Config:        map[string]any{"timeout_seconds": 0.05},
		}, nil)
	if !fkerrors.HasCode(err, fkerrors.ErrCodeResourceExhausted) {
		t.Errorf("timeout should be a resource error, got %v", err)
	}
}

func TestMemoryLimit(t *testing.T) {
	if got := MemoryLimitMB(nil); got != DefaultMemoryLimitMB {
		t.Errorf("default = %d", got)
	}
	if got := MemoryLimitMB(map[string]any{"memory_limit_mb": float64(256)}); got != 256 {
		t.Errorf("got %d", got)
	}
}
