// Package processor defines the contract between the engine and the
// pluggable units that do the actual per-node work.
//
// The engine never discovers processors by reflection: a Registry is
// populated by explicit Register calls at process startup, and the
// compiler and node runtime depend only on the registry interface.
// Processor business logic (AI calls, email, transforms) lives outside
// the engine; the builtin processors here exist for pipelines exercised
// in tests and examples.
package processor
