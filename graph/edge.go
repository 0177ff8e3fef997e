package graph

import "strings"

const (
	outputMarker = "-output-"
	inputMarker  = "-input-"
)

// Edge is a directed connection between two node ports. The port names,
// trigger flag, and branch name are derived from the raw handles at build
// time.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	// SourceHandle and TargetHandle are the raw authoring-tool handles,
	// format {nodeId}-{input|output}-{portName}.
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
	// SourcePort and TargetPort are the parsed port names ("" if the
	// handle was unparsable).
	SourcePort string `json:"source_port,omitempty"`
	TargetPort string `json:"target_port,omitempty"`
	// IsTrigger is true iff the target port is the reserved trigger port.
	// Trigger edges gate control flow; all other edges carry data.
	IsTrigger bool `json:"is_trigger"`
	// BranchName names the source output branch for gateway nodes with
	// multiple named outputs (e.g. "True"/"False").
	BranchName string `json:"branch_name,omitempty"`
}

// PortFromHandle extracts the port name from a handle string by splitting
// on the literal "-output-" or "-input-" marker and taking the second
// segment. An unparsable handle yields "" rather than an error; downstream
// mapping falls back to the default port.
func PortFromHandle(handle string) string {
	for _, marker := range []string{outputMarker, inputMarker} {
		if idx := strings.Index(handle, marker); idx >= 0 {
			return handle[idx+len(marker):]
		}
	}
	return ""
}

// newEdge derives the parsed fields of an edge from its raw handles.
func newEdge(id, source, target, sourceHandle, targetHandle string) Edge {
	sourcePort := PortFromHandle(sourceHandle)
	targetPort := PortFromHandle(targetHandle)

	branch := ""
	if sourcePort != "" && sourcePort != DefaultPort {
		branch = sourcePort
	}

	return Edge{
		ID:           id,
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		SourcePort:   sourcePort,
		TargetPort:   targetPort,
		IsTrigger:    targetPort == TriggerPort,
		BranchName:   branch,
	}
}
