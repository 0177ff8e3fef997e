// Package monitor provides execution monitoring for pipeline runs: wall
// clock and memory accounting, per-node timing statistics, a bounded
// performance score, centralized error classification with recovery
// hooks, and OpenTelemetry metric export.
//
// The Monitor implements orchestrator.Observer, so it plugs directly into
// either orchestrator.
package monitor
