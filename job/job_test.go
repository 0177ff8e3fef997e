package job

import (
	"testing"
)

func TestJobTransitions(t *testing.T) {
	j := &Job{ID: "j1", Status: StatusPending, MaxRetries: DefaultMaxRetries}

	if err := j.Transition(StatusRunning); err != nil {
		t.Fatalf("pending -> running: %v", err)
	}
	if j.StartedAt == nil {
		t.Error("StartedAt not stamped")
	}

	if err := j.Transition(StatusCompleted); err != nil {
		t.Fatalf("running -> completed: %v", err)
	}
	if j.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}

	if err := j.Transition(StatusRunning); err == nil {
		t.Error("completed -> running must be rejected")
	}
}

func TestJobIllegalTransitions(t *testing.T) {
	cases := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusCompleted, StatusPending},
		{StatusCancelled, StatusRunning},
		{StatusFailed, StatusRunning},
	}
	for _, c := range cases {
		if ValidTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be illegal", c.from, c.to)
		}
	}
}

func TestRetryBound(t *testing.T) {
	j := &Job{ID: "j1", Status: StatusFailed, MaxRetries: 2}

	for i := 0; i < 2; i++ {
		if !j.CanRetry() {
			t.Fatalf("attempt %d: retry budget should remain", i)
		}
		if !j.Retry() {
			t.Fatalf("attempt %d: Retry refused", i)
		}
		if j.Status != StatusPending {
			t.Fatalf("retry must reset to pending, got %s", j.Status)
		}
		j.Status = StatusFailed
	}

	if j.CanRetry() {
		t.Error("retry budget should be exhausted")
	}
	if j.Retry() {
		t.Error("Retry must refuse after maxRetries attempts")
	}
	if j.RetryCount != 2 {
		t.Errorf("retryCount = %d, want 2", j.RetryCount)
	}
	if j.Status != StatusFailed {
		t.Errorf("exhausted job must stay failed, got %s", j.Status)
	}
}

func TestReadiness(t *testing.T) {
	j := &Job{ID: "d", DependsOn: []string{"a", "b"}}
	statuses := map[string]Status{"a": StatusCompleted, "b": StatusRunning}

	if j.ReadyAgainst(statuses) {
		t.Error("job with a running dependency must not be ready")
	}

	statuses["b"] = StatusCompleted
	if !j.ReadyAgainst(statuses) {
		t.Error("job with all dependencies completed must be ready")
	}

	statuses["b"] = StatusFailed
	if j.ReadyAgainst(statuses) {
		t.Error("job with a failed dependency must never be ready")
	}

	free := &Job{ID: "solo"}
	if !free.ReadyAgainst(nil) {
		t.Error("job with no dependencies is always ready")
	}
}

func TestPipelineTransitions(t *testing.T) {
	p := &Pipeline{ID: "p1", Status: PipelinePending}

	steps := []PipelineStatus{PipelineRunning, PipelinePaused, PipelineRunning, PipelineFailed, PipelinePending}
	for _, to := range steps {
		if err := p.Transition(to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}

	// Reset clears run state.
	if p.StartedAt != nil || p.CompletedAt != nil || p.ErrorMessage != "" {
		t.Error("reset to pending must clear run state")
	}

	if err := p.Transition(PipelineCompleted); err == nil {
		t.Error("pending -> completed must be rejected")
	}
}

func TestSummarize(t *testing.T) {
	jobs := []*Job{
		{Status: StatusCompleted},
		{Status: StatusCompleted},
		{Status: StatusFailed},
		{Status: StatusPending},
		{Status: StatusRunning},
		{Status: StatusCancelled},
	}

	s := Summarize(jobs)
	if s.Total != 6 || s.Completed != 2 || s.Failed != 1 || s.Pending != 1 || s.Running != 1 || s.Cancelled != 1 {
		t.Errorf("summary = %+v", s)
	}
}
