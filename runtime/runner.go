package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/flowkit-io/flowkit/compiler"
	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/processor"
)

// Defaults for per-node resource limits when the node config declares none.
const (
	DefaultTimeout       = 300 * time.Second
	DefaultMemoryLimitMB = 128
)

// Result is the outcome of one successful node execution.
type Result struct {
	JobID      string         `json:"job_id"`
	NodeID     string         `json:"node_id"`
	Outputs    map[string]any `json:"outputs,omitempty"`
	Elapsed    time.Duration  `json:"elapsed"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Runner is a uniform invocation and error-wrapping shim over the
// processor registry.
type Runner struct {
	registry       *processor.Registry
	log            *logger.Logger
	defaultTimeout time.Duration
}

// NewRunner creates a Runner. A zero defaultTimeout falls back to
// DefaultTimeout.
func NewRunner(registry *processor.Registry, log *logger.Logger, defaultTimeout time.Duration) *Runner {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Runner{
		registry:       registry,
		log:            log.WithComponent("runtime"),
		defaultTimeout: defaultTimeout,
	}
}

// ExecuteNode runs one node for one job. Processor panics and errors are
// wrapped with job/node context; a deadline breach surfaces as a
// resource-category error.
func (r *Runner) ExecuteNode(ctx context.Context, jobID string, mapping compiler.NodeMapping, inputs map[string]any) (*Result, error) {
	proc, ok := r.registry.Get(mapping.ProcessorType)
	if !ok {
		return nil, errors.ProcessorNotFound(mapping.ProcessorType)
	}

	if !proc.ValidateInputs(inputs) {
		return nil, errors.DataFlow(mapping.NodeID,
			fmt.Sprintf("inputs rejected by processor %q contract", mapping.ProcessorType)).
			WithDetail("job_id", jobID)
	}

	timeout := configDuration(mapping.Config, "timeout_seconds", r.defaultTimeout)
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	outputs, err := r.invoke(execCtx, proc, inputs, mapping.Config)
	elapsed := time.Since(start)

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, errors.ResourceExhausted("time",
				fmt.Sprintf("node %q exceeded its %s execution timeout", mapping.NodeID, timeout)).
				WithDetail("job_id", jobID).
				WithDetail("node_id", mapping.NodeID)
		}
		return nil, errors.NodeExecution(jobID, mapping.NodeID, err)
	}

	r.log.Debug("node executed", logger.Fields(
		logger.FieldJobID, jobID,
		logger.FieldNodeID, mapping.NodeID,
		logger.FieldProcessor, mapping.ProcessorType,
		logger.FieldDuration, elapsed.Milliseconds(),
	))

	return &Result{
		JobID:      jobID,
		NodeID:     mapping.NodeID,
		Outputs:    outputs,
		Elapsed:    elapsed,
		FinishedAt: time.Now().UTC(),
	}, nil
}

// invoke calls the processor on its own goroutine so a hung processor
// cannot outlive the execution deadline, and converts panics to errors.
func (r *Runner) invoke(ctx context.Context, proc processor.Processor, inputs, config map[string]any) (map[string]any, error) {
	type outcome struct {
		outputs map[string]any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("processor panic: %v", rec)}
			}
		}()
		outputs, err := proc.Process(ctx, inputs, config)
		done <- outcome{outputs: outputs, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.outputs, out.err
	}
}

func configDuration(config map[string]any, key string, def time.Duration) time.Duration {
	v, ok := config[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Second
	case int64:
		return time.Duration(n) * time.Second
	case float64:
		return time.Duration(n * float64(time.Second))
	default:
		return def
	}
}

// MemoryLimitMB returns the node's declared memory ceiling in megabytes.
// The single-process runtime does not enforce it; the monitor surfaces a
// resource-category error when an execution's delta exceeds it.
func MemoryLimitMB(config map[string]any) int {
	v, ok := config["memory_limit_mb"]
	if !ok {
		return DefaultMemoryLimitMB
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return DefaultMemoryLimitMB
	}
}
