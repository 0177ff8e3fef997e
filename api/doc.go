// Package api exposes a read-only HTTP status API over the job store and
// execution monitor: pipeline status, per-job status, run summaries,
// execution reports and health.
//
// The API never mutates engine state; pipeline control stays with the
// orchestrator owning the run.
package api
