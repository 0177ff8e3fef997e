package monitor

import (
	"context"
	"strings"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/logger"
	"github.com/flowkit-io/flowkit/orchestrator"
)

// Category groups failures by the engine layer that produced them.
type Category string

const (
	CategoryDataFlow      Category = "data_flow"
	CategoryCompilation   Category = "compilation"
	CategoryOrchestration Category = "orchestration"
	CategoryResource      Category = "resource"
	CategoryUnknown       Category = "unknown"
)

// Severity grades how urgent a failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Classification is the outcome of handling one error.
type Classification struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	// Recovered reports whether a registered recovery strategy ran
	// without error.
	Recovered bool `json:"recovered"`
}

// rule maps an error predicate to a category and severity. Rules are
// evaluated in order; the first match wins.
type rule struct {
	category Category
	severity Severity
	match    func(err error, message string) bool
}

// RecoveryFunc attempts to recover from a classified failure, e.g. by
// releasing resources or resetting external state.
type RecoveryFunc func(ctx context.Context, pipelineID string) error

// ErrorHandler classifies pipeline errors and dispatches recovery
// strategies registered per category.
type ErrorHandler struct {
	log        *logger.Logger
	monitor    *Monitor
	rules      []rule
	recoveries map[Category]RecoveryFunc
}

// NewErrorHandler creates an ErrorHandler with the default rule set.
// monitor may be nil.
func NewErrorHandler(log *logger.Logger, monitor *Monitor) *ErrorHandler {
	return &ErrorHandler{
		log:        log.WithComponent("monitor.errors"),
		monitor:    monitor,
		rules:      defaultRules(),
		recoveries: make(map[Category]RecoveryFunc),
	}
}

func defaultRules() []rule {
	return []rule{
		{
			category: CategoryResource,
			severity: SeverityCritical,
			match: func(err error, message string) bool {
				if errors.HasCode(err, errors.ErrCodeResourceExhausted) {
					return true
				}
				return containsAny(message, "memory limit", "time limit", "resource exhausted", "out of memory")
			},
		},
		{
			category: CategoryCompilation,
			severity: SeverityHigh,
			match: func(err error, message string) bool {
				if errors.HasCode(err, errors.ErrCodeCompilationFailed) || errors.HasCode(err, errors.ErrCodeCycleDetected) {
					return true
				}
				return containsAny(message, "compilation", "circular dependency", "cycle")
			},
		},
		{
			category: CategoryDataFlow,
			severity: SeverityMedium,
			match: func(err error, message string) bool {
				if errors.HasCode(err, errors.ErrCodeDataFlowMismatch) {
					return true
				}
				return containsAny(message, "data flow", "port", "input validation", "schema mismatch")
			},
		},
		{
			category: CategoryOrchestration,
			severity: SeverityHigh,
			match: func(err error, message string) bool {
				for _, code := range []errors.ErrorCode{
					errors.ErrCodeOrchestrationFailed,
					errors.ErrCodeQueueUnavailable,
					errors.ErrCodeStoreUnavailable,
					errors.ErrCodeConflict,
					errors.ErrCodeLockContention,
				} {
					if errors.HasCode(err, code) {
						return true
					}
				}
				return containsAny(message, "orchestration", "scheduling", "dependency")
			},
		},
	}
}

func containsAny(message string, patterns ...string) bool {
	lower := strings.ToLower(message)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// RegisterRecovery installs a recovery strategy for a category, replacing
// any previous one.
func (h *ErrorHandler) RegisterRecovery(category Category, fn RecoveryFunc) {
	h.recoveries[category] = fn
}

// Handle classifies an error, records it, and runs the category's
// recovery strategy when one is registered. Recovery failures are logged
// and reported through the classification, never propagated.
func (h *ErrorHandler) Handle(ctx context.Context, pipelineID string, err error) Classification {
	message := ""
	if err != nil {
		message = err.Error()
	}

	c := Classification{Category: CategoryUnknown, Severity: SeverityLow}
	for _, r := range h.rules {
		if r.match(err, message) {
			c.Category = r.category
			c.Severity = r.severity
			break
		}
	}

	fields := logger.Fields(
		logger.FieldPipelineID, pipelineID,
		logger.FieldError, message,
		"category", string(c.Category),
		"severity", string(c.Severity),
	)
	if c.Severity == SeverityCritical || c.Severity == SeverityHigh {
		h.log.Error("pipeline error", fields)
	} else {
		h.log.Warn("pipeline error", fields)
	}

	if h.monitor != nil {
		if c.Severity == SeverityLow {
			h.monitor.RecordWarning(pipelineID, message)
		}
		if h.monitor.metrics != nil {
			h.monitor.metrics.RecordError(ctx, c.Category)
		}
	}

	if fn, ok := h.recoveries[c.Category]; ok {
		if rerr := fn(ctx, pipelineID); rerr != nil {
			h.log.Error("recovery failed", logger.Fields(
				logger.FieldPipelineID, pipelineID,
				"category", string(c.Category),
				logger.FieldError, rerr.Error(),
			))
		} else {
			c.Recovered = true
		}
	}

	return c
}

// FailureObserver feeds execution events to the monitor and additionally
// routes every job failure through the error handler, so classification
// and recovery run in the assembled system without the orchestrators
// knowing about either.
type FailureObserver struct {
	*Monitor
	handler *ErrorHandler
}

// NewFailureObserver combines a monitor and an error handler into one
// observer.
func NewFailureObserver(m *Monitor, h *ErrorHandler) *FailureObserver {
	return &FailureObserver{Monitor: m, handler: h}
}

func (o *FailureObserver) JobFailed(pipelineID, jobID, nodeID string, err error) {
	o.Monitor.JobFailed(pipelineID, jobID, nodeID, err)
	o.handler.Handle(context.Background(), pipelineID, err)
}

var _ orchestrator.Observer = (*FailureObserver)(nil)
