package graph

// Reserved port names.
const (
	// TriggerPort is the reserved input port that gates control flow.
	// Edges targeting it carry no data.
	TriggerPort = "trigger"
	// DefaultPort is substituted when a handle does not encode a port name.
	DefaultPort = "default"
)

// Port is a named, typed connection point on a node.
type Port struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Position is display-only canvas placement, ignored by the engine.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a single processing step in a workflow graph. Immutable once
// compiled.
type Node struct {
	// ID is unique within a workflow.
	ID string `json:"id"`
	// ProcessorType identifies which processor plugin executes this node.
	ProcessorType string `json:"processor_type"`
	// Label is the human-readable node title.
	Label string `json:"label,omitempty"`
	// Category groups nodes for display (e.g. "ai", "logic", "transform").
	Category string `json:"category,omitempty"`
	// Config is an opaque key-value map passed through to the processor.
	Config map[string]any `json:"config,omitempty"`
	// Inputs and Outputs declare the node's connection points.
	Inputs  []Port `json:"inputs,omitempty"`
	Outputs []Port `json:"outputs,omitempty"`
	// Position is display-only.
	Position *Position `json:"position,omitempty"`
}
