package compiler

import (
	"fmt"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/graph"
	"github.com/flowkit-io/flowkit/logger"
)

// Compiler validates workflow graphs and produces execution plans.
type Compiler struct {
	log *logger.Logger
}

// New creates a Compiler.
func New(log *logger.Logger) *Compiler {
	return &Compiler{log: log.WithComponent("compiler")}
}

// Compile validates the graph and produces an immutable ExecutionPlan.
// The first validation violation wins; a cycle aborts compilation with no
// partial plan.
func (c *Compiler) Compile(g *graph.Graph) (*ExecutionPlan, error) {
	if err := c.validate(g); err != nil {
		return nil, err
	}

	for _, w := range g.Warnings {
		c.log.Warn("graph warning", logger.Fields(logger.FieldWorkflowID, g.ID, "warning", w))
	}

	deps, dependents := dependencyRelation(g)

	if err := detectCycle(g, dependents); err != nil {
		return nil, err
	}

	order := topoSort(g, deps, dependents)

	plan := &ExecutionPlan{
		GraphID:        g.ID,
		ExecutionOrder: order,
		Dependencies:   deps,
		Dependents:     dependents,
		InputMappings:  make(map[string][]IOMapping, len(order)),
		OutputMappings: make(map[string][]IOMapping, len(order)),
		NodeMappings:   make(map[string]NodeMapping, len(order)),
	}

	for _, nodeID := range order {
		plan.InputMappings[nodeID] = buildMappings(g, deps[nodeID], nodeID, true)
		plan.OutputMappings[nodeID] = buildMappings(g, dependents[nodeID], nodeID, false)

		node, _ := g.Node(nodeID)
		plan.NodeMappings[nodeID] = NodeMapping{
			NodeID:        node.ID,
			ProcessorType: node.ProcessorType,
			Config:        node.Config,
			Label:         node.Label,
			Category:      node.Category,
			Inputs:        node.Inputs,
			Outputs:       node.Outputs,
		}
	}

	if err := checkConsistency(plan); err != nil {
		return nil, err
	}

	c.log.Info("graph compiled", logger.Fields(
		logger.FieldWorkflowID, g.ID,
		"nodes", len(order),
		"edges", len(g.Edges),
	))

	return plan, nil
}

// validate applies the fail-fast structural checks, first violation wins.
func (c *Compiler) validate(g *graph.Graph) error {
	if g.ID == "" {
		return errors.Compilation("workflow graph has no id")
	}
	if len(g.Nodes) == 0 {
		return errors.Compilation("workflow graph contains no nodes")
	}
	seen := make(map[string]bool, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			return errors.Compilation(fmt.Sprintf("node at index %d has no id", i))
		}
		if seen[n.ID] {
			return errors.Compilation(fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
		if n.ProcessorType == "" {
			return errors.Compilation(fmt.Sprintf("node %q has no processor type", n.ID))
		}
	}
	return nil
}

// dependencyRelation derives ordered, deduplicated dependency and dependent
// sets from the graph's edges. Edge order follows input order, keeping the
// relation deterministic.
func dependencyRelation(g *graph.Graph) (deps, dependents map[string][]string) {
	deps = make(map[string][]string, len(g.Nodes))
	dependents = make(map[string][]string, len(g.Nodes))

	seenDep := make(map[string]map[string]bool)
	seenDpt := make(map[string]map[string]bool)

	for i := range g.Nodes {
		id := g.Nodes[i].ID
		deps[id] = nil
		dependents[id] = nil
		seenDep[id] = make(map[string]bool)
		seenDpt[id] = make(map[string]bool)
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		if !seenDep[e.Target][e.Source] {
			seenDep[e.Target][e.Source] = true
			deps[e.Target] = append(deps[e.Target], e.Source)
		}
		if !seenDpt[e.Source][e.Target] {
			seenDpt[e.Source][e.Target] = true
			dependents[e.Source] = append(dependents[e.Source], e.Target)
		}
	}

	return deps, dependents
}

// detectCycle runs a depth-first search from every unvisited node with a
// recursion stack. Revisiting a node still on the stack means a cycle.
func detectCycle(g *graph.Graph, dependents map[string][]string) error {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(g.Nodes))

	var visit func(id string) error
	visit = func(id string) error {
		state[id] = onStack
		for _, next := range dependents[id] {
			switch state[next] {
			case onStack:
				return errors.CycleDetected(next)
			case unvisited:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		state[id] = done
		return nil
	}

	for i := range g.Nodes {
		if state[g.Nodes[i].ID] == unvisited {
			if err := visit(g.Nodes[i].ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// topoSort orders nodes with Kahn's algorithm. The queue is seeded in node
// insertion order so the result is stable for a fixed input graph.
func topoSort(g *graph.Graph, deps, dependents map[string][]string) []string {
	inDegree := make(map[string]int, len(g.Nodes))
	for i := range g.Nodes {
		id := g.Nodes[i].ID
		inDegree[id] = len(deps[id])
	}

	var queue []string
	for i := range g.Nodes {
		if id := g.Nodes[i].ID; inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, next := range dependents[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	return order
}

// buildMappings captures the port metadata of every edge connecting nodeID
// to each neighbor. If no edge metadata is found the mapping falls back to
// the default port with the trigger flag cleared.
func buildMappings(g *graph.Graph, neighbors []string, nodeID string, input bool) []IOMapping {
	var out []IOMapping
	for _, neighbor := range neighbors {
		var edges []*graph.Edge
		if input {
			edges = g.EdgesBetween(neighbor, nodeID)
		} else {
			edges = g.EdgesBetween(nodeID, neighbor)
		}

		if len(edges) == 0 {
			out = append(out, IOMapping{
				NodeID:     neighbor,
				SourcePort: graph.DefaultPort,
				TargetPort: graph.DefaultPort,
			})
			continue
		}

		for _, e := range edges {
			out = append(out, IOMapping{
				NodeID:     neighbor,
				SourcePort: portOrDefault(e.SourcePort),
				TargetPort: portOrDefault(e.TargetPort),
				IsTrigger:  e.IsTrigger,
				BranchName: e.BranchName,
			})
		}
	}
	return out
}

func portOrDefault(port string) string {
	if port == "" {
		return graph.DefaultPort
	}
	return port
}

// checkConsistency verifies the plan's execution order and node mappings
// cover exactly the same node set. A mismatch signals a compiler bug, not
// bad user data.
func checkConsistency(plan *ExecutionPlan) error {
	if len(plan.ExecutionOrder) != len(plan.NodeMappings) {
		return errors.Internal(fmt.Sprintf(
			"execution plan inconsistent: %d ordered nodes, %d mappings",
			len(plan.ExecutionOrder), len(plan.NodeMappings)), nil)
	}
	for _, id := range plan.ExecutionOrder {
		if _, ok := plan.NodeMappings[id]; !ok {
			return errors.Internal(fmt.Sprintf("execution plan inconsistent: node %q has no mapping", id), nil)
		}
	}
	return nil
}
