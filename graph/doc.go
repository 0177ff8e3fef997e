// Package graph provides the typed in-memory model of a workflow graph.
//
// Raw graph documents (nodes, edges, port handles) produced by authoring
// tools are decoded into Node and Edge values, and an edge index is built
// for O(1) neighbor lookup. Edges referencing unknown nodes are dropped
// and recorded as warnings rather than failing the whole graph.
//
// Port names are encoded in edge handles as {nodeId}-{input|output}-{port};
// an unparsable handle yields an empty port name, which downstream mapping
// replaces with the reserved default port.
package graph
