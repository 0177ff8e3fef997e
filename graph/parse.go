package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"
)

// Raw wire format, as produced by graph authoring tools. Field names are
// part of the compatibility contract and must not change.

// RawGraph is the undecoded graph document.
type RawGraph struct {
	ID    string    `json:"id" yaml:"id" validate:"required"`
	Nodes []RawNode `json:"nodes" yaml:"nodes" validate:"min=1,dive"`
	Edges []RawEdge `json:"edges" yaml:"edges"`
}

// RawNode is one node entry in a raw graph document.
type RawNode struct {
	ID       string      `json:"id" yaml:"id" validate:"required"`
	Type     string      `json:"type" yaml:"type"`
	Data     RawNodeData `json:"data" yaml:"data"`
	Position *Position   `json:"position,omitempty" yaml:"position,omitempty"`
}

// RawNodeData carries the node's label, opaque config, and metadata.
type RawNodeData struct {
	Label    string          `json:"label,omitempty" yaml:"label,omitempty"`
	Config   map[string]any  `json:"config,omitempty" yaml:"config,omitempty"`
	Metadata RawNodeMetadata `json:"metadata" yaml:"metadata"`
}

// RawNodeMetadata declares the executing plugin and the port contracts.
type RawNodeMetadata struct {
	ExecutorPlugin string `json:"executor_plugin" yaml:"executor_plugin"`
	Category       string `json:"category,omitempty" yaml:"category,omitempty"`
	Inputs         []Port `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs        []Port `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// RawEdge is one edge entry in a raw graph document.
type RawEdge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source" validate:"required"`
	Target       string `json:"target" yaml:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle" yaml:"sourceHandle"`
	TargetHandle string `json:"targetHandle" yaml:"targetHandle"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FromRaw converts a raw graph document into a typed Graph. The processor
// type of each node comes from data.metadata.executor_plugin, falling back
// to the node's type field.
func FromRaw(raw *RawGraph) *Graph {
	nodes := make([]Node, 0, len(raw.Nodes))
	for _, rn := range raw.Nodes {
		processorType := rn.Data.Metadata.ExecutorPlugin
		if processorType == "" {
			processorType = rn.Type
		}
		nodes = append(nodes, Node{
			ID:            rn.ID,
			ProcessorType: processorType,
			Label:         rn.Data.Label,
			Category:      rn.Data.Metadata.Category,
			Config:        rn.Data.Config,
			Inputs:        rn.Data.Metadata.Inputs,
			Outputs:       rn.Data.Metadata.Outputs,
			Position:      rn.Position,
		})
	}

	edges := make([]Edge, 0, len(raw.Edges))
	for _, re := range raw.Edges {
		edges = append(edges, newEdge(re.ID, re.Source, re.Target, re.SourceHandle, re.TargetHandle))
	}

	return Build(raw.ID, nodes, edges)
}

// Parse decodes a JSON graph document and builds the typed Graph.
func Parse(data []byte) (*Graph, error) {
	var raw RawGraph
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("graph: decoding document: %w", err)
	}
	if err := validate.Struct(&raw); err != nil {
		return nil, fmt.Errorf("graph: invalid document: %w", err)
	}
	return FromRaw(&raw), nil
}

// LoadFile reads a graph document from disk. YAML is accepted for .yaml
// and .yml files, JSON otherwise.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: reading %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var raw RawGraph
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("graph: parsing %s: %w", path, err)
		}
		if err := validate.Struct(&raw); err != nil {
			return nil, fmt.Errorf("graph: invalid document %s: %w", path, err)
		}
		return FromRaw(&raw), nil
	}

	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("graph: parsing %s: %w", path, err)
	}
	return g, nil
}
