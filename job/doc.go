// Package job provides the stateful execution model of a pipeline run.
//
// A Job is one (pipeline run x graph node) instance with status, retry
// counters, dependency links, and input/output payloads. A Pipeline
// aggregates all jobs of one run of a compiled workflow; its job-count
// summary is always derived from the jobs, never stored separately.
//
// The Store interface is the engine's narrow boundary to durable job and
// pipeline records. Two implementations ship: an in-memory store for tests
// and synchronous runs, and a Redis-backed store whose atomic transition
// semantics enforce single-owner job execution across workers.
//
// The Generator expands a compiled execution plan into concrete job
// records, wiring dependency edges between jobs.
package job
