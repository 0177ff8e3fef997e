// Package compiler turns a workflow graph into an immutable execution plan.
//
// Compilation validates the graph, builds the dependency relation from its
// edges, rejects cycles, orders nodes topologically (Kahn's algorithm,
// seeded in node insertion order so a fixed input always yields the same
// plan), and records per-node input/output port mappings plus the processor
// mapping the node runtime consumes.
//
// Compilation is transactional: any validation failure or cycle returns a
// typed error and no plan.
package compiler
