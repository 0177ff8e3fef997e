package monitor

import (
	"context"
	"fmt"
	"testing"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/logger"
)

func TestErrorHandlerClassification(t *testing.T) {
	h := NewErrorHandler(logger.Nop(), nil)
	ctx := context.Background()

	tests := []struct {
		name         string
		err          error
		wantCategory Category
		wantSeverity Severity
	}{
		{"resource exhaustion by code", errors.ResourceExhausted("time", "time limit exceeded"), CategoryResource, SeverityCritical},
		{"out of memory by message", fmt.Errorf("worker killed: out of memory"), CategoryResource, SeverityCritical},
		{"cycle detection", errors.CycleDetected("B"), CategoryCompilation, SeverityHigh},
		{"compilation by message", fmt.Errorf("compilation aborted"), CategoryCompilation, SeverityHigh},
		{"data flow by code", errors.DataFlow("A", "port type mismatch"), CategoryDataFlow, SeverityMedium},
		{"orchestration by code", errors.QueueUnavailable(nil), CategoryOrchestration, SeverityHigh},
		{"lock contention", errors.New(errors.ErrCodeLockContention, "job was modified concurrently", 409), CategoryOrchestration, SeverityHigh},
		{"unmatched error", fmt.Errorf("segfault in plugin"), CategoryUnknown, SeverityLow},
		{"nil error", nil, CategoryUnknown, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := h.Handle(ctx, "p1", tt.err)
			if c.Category != tt.wantCategory || c.Severity != tt.wantSeverity {
				t.Fatalf("Handle() = %s/%s, want %s/%s", c.Category, c.Severity, tt.wantCategory, tt.wantSeverity)
			}
		})
	}
}

func TestErrorHandlerFirstMatchWins(t *testing.T) {
	h := NewErrorHandler(logger.Nop(), nil)
	// Mentions both a resource and a data-flow pattern; resource rules
	// rank first.
	c := h.Handle(context.Background(), "p1", fmt.Errorf("memory limit hit while validating port"))
	if c.Category != CategoryResource {
		t.Fatalf("category = %s, want resource", c.Category)
	}
}

func TestErrorHandlerRecovery(t *testing.T) {
	h := NewErrorHandler(logger.Nop(), nil)
	ctx := context.Background()

	recovered := ""
	h.RegisterRecovery(CategoryResource, func(_ context.Context, pipelineID string) error {
		recovered = pipelineID
		return nil
	})
	h.RegisterRecovery(CategoryCompilation, func(context.Context, string) error {
		return fmt.Errorf("nothing to do")
	})

	c := h.Handle(ctx, "p1", errors.ResourceExhausted("memory", "memory limit exceeded"))
	if !c.Recovered || recovered != "p1" {
		t.Fatalf("recovery did not run: %+v", c)
	}

	c = h.Handle(ctx, "p2", errors.CycleDetected("A"))
	if c.Recovered {
		t.Fatal("failed recovery must not be reported as recovered")
	}

	c = h.Handle(ctx, "p3", errors.DataFlow("A", "bad port"))
	if c.Recovered {
		t.Fatal("no recovery registered for data_flow")
	}
}

func TestFailureObserverRoutesJobFailures(t *testing.T) {
	mon := New(logger.Nop(), nil)
	h := NewErrorHandler(logger.Nop(), mon)

	recovered := ""
	h.RegisterRecovery(CategoryResource, func(_ context.Context, pipelineID string) error {
		recovered = pipelineID
		return nil
	})

	obs := NewFailureObserver(mon, h)
	obs.JobStarted("p1", "j1", "A")
	obs.JobFailed("p1", "j1", "A", errors.ResourceExhausted("memory", "memory limit exceeded"))

	if recovered != "p1" {
		t.Fatalf("recovery pipeline = %q, want p1", recovered)
	}
	report, ok := mon.Report("p1")
	if !ok {
		t.Fatal("expected a live report for p1")
	}
	if report.Errors != 1 {
		t.Fatalf("errors = %d, want 1", report.Errors)
	}
}
