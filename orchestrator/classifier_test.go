package orchestrator

import (
	"fmt"
	"testing"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/job"
)

func TestClassify(t *testing.T) {
	fresh := &job.Job{ID: "j1", RetryCount: 0, MaxRetries: 3}
	spent := &job.Job{ID: "j2", RetryCount: 3, MaxRetries: 3}

	tests := []struct {
		name    string
		j       *job.Job
		err     error
		message string
		want    RetryDecision
	}{
		{"exhausted budget always suspends", spent, fmt.Errorf("connection refused"), "connection refused", Suspend},
		{"retryable engine error", fresh, errors.QueueUnavailable(nil), "", Requeue},
		{"non-retryable engine error", fresh, errors.InvalidInput("graph", "empty node list"), "", Suspend},
		{"processor connection failure", fresh, errors.NodeExecution("j1", "A", fmt.Errorf("connection refused")), "", Requeue},
		{"processor invalid input", fresh, errors.NodeExecution("j1", "A", fmt.Errorf("invalid payload")), "", Suspend},
		{"timeout message", fresh, nil, "request timed out", Requeue},
		{"rate limit message", fresh, nil, "429 too many requests", Requeue},
		{"lock contention message", fresh, nil, "could not acquire lock", Requeue},
		{"not found message", fresh, nil, "object not found", Suspend},
		{"unauthorized message", fresh, nil, "unauthorized", Suspend},
		// "invalid connection string": permanent patterns win over transient.
		{"permanent wins over transient", fresh, nil, "invalid connection string", Suspend},
		{"unknown failure is permanent", fresh, nil, "segfault in plugin", Suspend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.j, tt.err, tt.message); got != tt.want {
				t.Fatalf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRetryDecisionString(t *testing.T) {
	if Continue.String() != "continue" || Requeue.String() != "requeue" || Suspend.String() != "suspend" {
		t.Fatal("unexpected decision strings")
	}
}
