package orchestrator

import (
	"strings"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/job"
)

// RetryDecision is the explicit outcome of failure classification,
// consumed by the queue-facing layer instead of control-flow exceptions.
type RetryDecision int

const (
	// Continue means the failure needs no scheduling action (the job
	// already reached a state someone else owns).
	Continue RetryDecision = iota
	// Requeue means the failure looks transient and the job has retry
	// budget left: reset it to pending and schedule it again.
	Requeue
	// Suspend means the failure is permanent or the budget is exhausted:
	// the job stays failed and its dependents must not be scheduled.
	Suspend
)

func (d RetryDecision) String() string {
	switch d {
	case Requeue:
		return "requeue"
	case Suspend:
		return "suspend"
	default:
		return "continue"
	}
}

// transientPatterns mark failures worth retrying: connectivity, timeout,
// lock contention, rate limiting.
var transientPatterns = []string{
	"connection",
	"connect",
	"timeout",
	"timed out",
	"unavailable",
	"lock",
	"rate limit",
	"too many requests",
	"temporar",
}

// permanentPatterns mark failures where retrying cannot help.
var permanentPatterns = []string{
	"invalid",
	"missing",
	"not found",
	"unauthorized",
	"forbidden",
	"permission denied",
}

// Classify decides what to do with a failed job. A typed engine error's
// retryable flag wins; otherwise the message is matched against the
// permanent patterns first, then the transient ones. Unmatched failures
// are treated as permanent: retrying blind is worse than failing fast.
func Classify(j *job.Job, err error, message string) RetryDecision {
	if j != nil && !j.CanRetry() {
		return Suspend
	}

	if appErr, ok := errors.AsAppError(err); ok {
		if appErr.Retryable {
			return Requeue
		}
		// Processor failures carry an opaque cause; fall through to
		// message matching. Every other non-retryable code is final.
		if appErr.Code != errors.ErrCodeNodeExecutionFailed {
			return Suspend
		}
	}

	lower := strings.ToLower(message)
	if lower == "" && err != nil {
		lower = strings.ToLower(err.Error())
	}

	for _, p := range permanentPatterns {
		if strings.Contains(lower, p) {
			return Suspend
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return Requeue
		}
	}
	return Suspend
}
