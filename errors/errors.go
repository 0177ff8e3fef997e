package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified engine error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Domain Error Constructors ---

// Compilation creates a new AppError for a graph that failed validation.
// Compilation is transactional: callers never receive a partial plan.
func Compilation(reason string) *AppError {
	return &AppError{
		Code: ErrCodeCompilationFailed, Message: reason,
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
	}
}

// CycleDetected creates a new AppError for a circular dependency.
func CycleDetected(nodeID string) *AppError {
	return &AppError{
		Code: ErrCodeCycleDetected, Message: fmt.Sprintf("circular dependency detected at node %q", nodeID),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"node_id": nodeID},
	}
}

// DataFlow creates a new AppError for an input/output contract mismatch.
func DataFlow(nodeID, reason string) *AppError {
	return &AppError{
		Code: ErrCodeDataFlowMismatch, Message: reason,
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"node_id": nodeID},
	}
}

// NodeExecution creates a new AppError wrapping a processor failure with
// job and node context.
func NodeExecution(jobID, nodeID string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeNodeExecutionFailed, Message: fmt.Sprintf("node %q execution failed: %v", nodeID, cause),
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Details: map[string]any{"job_id": jobID, "node_id": nodeID},
		Cause:   cause,
	}
}

// Orchestration creates a new AppError for a job scheduling or dependency failure.
func Orchestration(reason string) *AppError {
	return &AppError{
		Code: ErrCodeOrchestrationFailed, Message: reason,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}

// ProcessorNotFound creates a new AppError for an unregistered processor type.
func ProcessorNotFound(processorType string) *AppError {
	return &AppError{
		Code: ErrCodeProcessorNotFound, Message: fmt.Sprintf("no processor registered for type %q", processorType),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"processor_type": processorType},
	}
}

// ResourceExhausted creates a new AppError for a timeout or memory ceiling breach.
func ResourceExhausted(resource, reason string) *AppError {
	return &AppError{
		Code: ErrCodeResourceExhausted, Message: reason,
		HTTPStatus: http.StatusInsufficientStorage, Retryable: false,
		Details: map[string]any{"resource": resource},
	}
}

// QueueUnavailable creates a new AppError for an unreachable work queue.
func QueueUnavailable(cause error) *AppError {
	return &AppError{
		Code: ErrCodeQueueUnavailable, Message: "work queue is unavailable",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Cause: cause,
	}
}

// StoreUnavailable creates a new AppError for an unreachable job store.
func StoreUnavailable(cause error) *AppError {
	return &AppError{
		Code: ErrCodeStoreUnavailable, Message: "job store is unavailable",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Cause: cause,
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("operation %q timed out", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("%s already exists", resource),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"resource": resource},
	}
}

// Conflict creates a new AppError for a conflict with the current state.
func Conflict(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: reason,
		HTTPStatus: http.StatusConflict, Retryable: false,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an internal engine failure.
func Internal(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: reason,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
		Cause: cause,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is a transient failure. Non-AppError
// values are treated as permanent.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
