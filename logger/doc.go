// Package logger provides structured logging for the flowkit engine,
// built on zerolog.
//
// Every engine component receives a *Logger through its constructor and
// tags it with WithComponent; nothing in the engine logs through ambient
// globals. Standard field keys for pipeline, job, and node identifiers
// keep log lines queryable across components.
package logger
