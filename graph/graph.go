package graph

import "fmt"

// Graph is the typed in-memory workflow graph with an edge index for O(1)
// neighbor lookup. Build it with Build or Parse; do not mutate after
// construction.
type Graph struct {
	ID    string
	Nodes []Node
	Edges []Edge

	// Warnings records non-fatal issues found while building (dropped
	// edges). The graph remains usable for the rest of the workflow.
	Warnings []string

	nodesByID map[string]*Node
	incoming  map[string][]*Edge
	outgoing  map[string][]*Edge
}

// Build constructs a Graph from decoded nodes and edges. Node order is
// preserved so compilation stays deterministic for a fixed input. Edges
// referencing a non-existent source or target node are dropped with a
// warning, not a fatal error.
func Build(id string, nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		ID:        id,
		Nodes:     nodes,
		nodesByID: make(map[string]*Node, len(nodes)),
		incoming:  make(map[string][]*Edge),
		outgoing:  make(map[string][]*Edge),
	}

	for i := range g.Nodes {
		g.nodesByID[g.Nodes[i].ID] = &g.Nodes[i]
	}

	for _, e := range edges {
		if _, ok := g.nodesByID[e.Source]; !ok {
			g.Warnings = append(g.Warnings, fmt.Sprintf("edge %q references unknown source node %q, dropped", e.ID, e.Source))
			continue
		}
		if _, ok := g.nodesByID[e.Target]; !ok {
			g.Warnings = append(g.Warnings, fmt.Sprintf("edge %q references unknown target node %q, dropped", e.ID, e.Target))
			continue
		}
		g.Edges = append(g.Edges, e)
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		g.incoming[e.Target] = append(g.incoming[e.Target], e)
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
	}

	return g
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodesByID[id]
	return n, ok
}

// Incoming returns the edges targeting the given node.
func (g *Graph) Incoming(nodeID string) []*Edge {
	return g.incoming[nodeID]
}

// Outgoing returns the edges leaving the given node.
func (g *Graph) Outgoing(nodeID string) []*Edge {
	return g.outgoing[nodeID]
}

// EdgesBetween returns the edges connecting source to target, in input
// order. Multiple edges between the same pair are legal (different ports).
func (g *Graph) EdgesBetween(source, target string) []*Edge {
	var out []*Edge
	for _, e := range g.outgoing[source] {
		if e.Target == target {
			out = append(out, e)
		}
	}
	return out
}
