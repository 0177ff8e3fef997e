package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Compilation errors (never retryable; the plan is discarded).
const (
	// ErrCodeCompilationFailed indicates the graph failed structural validation.
	ErrCodeCompilationFailed ErrorCode = "COMPILATION_FAILED"
	// ErrCodeCycleDetected indicates a circular dependency in the graph.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
)

// Execution errors.
const (
	// ErrCodeDataFlowMismatch indicates an input/output contract mismatch
	// between connected nodes.
	ErrCodeDataFlowMismatch ErrorCode = "DATA_FLOW_MISMATCH"
	// ErrCodeNodeExecutionFailed indicates a processor raised during process().
	ErrCodeNodeExecutionFailed ErrorCode = "NODE_EXECUTION_FAILED"
	// ErrCodeOrchestrationFailed indicates a job dependency or scheduling failure.
	ErrCodeOrchestrationFailed ErrorCode = "ORCHESTRATION_FAILED"
	// ErrCodeProcessorNotFound indicates no processor is registered for a type.
	ErrCodeProcessorNotFound ErrorCode = "PROCESSOR_NOT_FOUND"
	// ErrCodeResourceExhausted indicates a timeout or memory ceiling was exceeded.
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
)

// Connection/Availability errors (retryable).
const (
	// ErrCodeQueueUnavailable indicates the work queue cannot be reached.
	ErrCodeQueueUnavailable ErrorCode = "QUEUE_UNAVAILABLE"
	// ErrCodeStoreUnavailable indicates the job store cannot be reached.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates a downstream service rate-limited the call.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeLockContention indicates a concurrent update conflict on a record.
	ErrCodeLockContention ErrorCode = "LOCK_CONTENTION"
)

// Resource/Validation errors.
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeConflict indicates a conflict with the current resource state.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors.
const (
	// ErrCodeInternal indicates an internal engine error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeQueueUnavailable: true,
	ErrCodeStoreUnavailable: true,
	ErrCodeTimeout:          true,
	ErrCodeRateLimited:      true,
	ErrCodeLockContention:   true,
}

// IsRetryableCode returns true if the error code indicates a transient
// failure that may succeed on retry.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
