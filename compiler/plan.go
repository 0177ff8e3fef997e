package compiler

import "github.com/flowkit-io/flowkit/graph"

// IOMapping describes one port connection between a node and a neighbor.
type IOMapping struct {
	// NodeID is the connected neighbor (the dependency for input mappings,
	// the dependent for output mappings).
	NodeID string `json:"node_id"`
	// SourcePort is the output port on the upstream node.
	SourcePort string `json:"source_port"`
	// TargetPort is the input port on the downstream node.
	TargetPort string `json:"target_port"`
	// IsTrigger marks control-flow edges; they carry no data.
	IsTrigger bool `json:"is_trigger"`
	// BranchName names the gateway branch the edge leaves on, if any.
	BranchName string `json:"branch_name,omitempty"`
}

// NodeMapping is what the node runtime consumes to execute one node:
// the processor type, its merged config, and descriptive metadata.
type NodeMapping struct {
	NodeID        string         `json:"node_id"`
	ProcessorType string         `json:"processor_type"`
	Config        map[string]any `json:"config,omitempty"`
	Label         string         `json:"label,omitempty"`
	Category      string         `json:"category,omitempty"`
	Inputs        []graph.Port   `json:"inputs,omitempty"`
	Outputs       []graph.Port   `json:"outputs,omitempty"`
}

// ExecutionPlan is the compiled, topologically-ordered representation of a
// graph, ready for job generation. It is immutable once produced and safe
// to share across workers.
type ExecutionPlan struct {
	// GraphID identifies the workflow this plan was compiled from.
	GraphID string `json:"graph_id"`
	// ExecutionOrder lists node ids so that every node appears after all
	// of its dependencies.
	ExecutionOrder []string `json:"execution_order"`
	// Dependencies maps each node to the ordered set of node ids it
	// depends on; Dependents is the reverse relation.
	Dependencies map[string][]string `json:"dependencies"`
	Dependents   map[string][]string `json:"dependents"`
	// InputMappings and OutputMappings describe, per node, which ports
	// connect it to each neighbor.
	InputMappings  map[string][]IOMapping `json:"input_mappings"`
	OutputMappings map[string][]IOMapping `json:"output_mappings"`
	// NodeMappings holds the per-node processor mapping. Its key set
	// always equals the set of ids in ExecutionOrder.
	NodeMappings map[string]NodeMapping `json:"node_mappings"`
}

// DependenciesOf returns the node ids the given node depends on.
func (p *ExecutionPlan) DependenciesOf(nodeID string) []string {
	return p.Dependencies[nodeID]
}

// DependentsOf returns the node ids that depend on the given node.
func (p *ExecutionPlan) DependentsOf(nodeID string) []string {
	return p.Dependents[nodeID]
}

// Mapping returns the processor mapping for a node.
func (p *ExecutionPlan) Mapping(nodeID string) (NodeMapping, bool) {
	m, ok := p.NodeMappings[nodeID]
	return m, ok
}
