// Package errors provides unified error handling for the flowkit engine.
//
// Every error crossing a package boundary is an *AppError carrying a
// machine-readable code, a retryable flag, and optional structured details.
// The orchestrator's failure classifier and the monitor's error handler
// both key off the code, so a compilation failure, a data-flow mismatch,
// and a transient queue error all travel through the same type.
package errors
