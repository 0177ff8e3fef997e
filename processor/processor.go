package processor

import (
	"context"
	"sort"
	"sync"

	"github.com/flowkit-io/flowkit/graph"
)

// Processor is an executable unit backing one node type.
type Processor interface {
	// Type is the processor-type id nodes reference.
	Type() string
	// Process executes the unit with merged upstream inputs and the
	// node's opaque config, returning named outputs keyed by port.
	Process(ctx context.Context, inputs map[string]any, config map[string]any) (map[string]any, error)
	// ValidateInputs checks inputs against the processor's declared
	// input contract.
	ValidateInputs(inputs map[string]any) bool
	// InputSchema and OutputSchema declare the port contracts.
	InputSchema() []graph.Port
	OutputSchema() []graph.Port
	// ConfigSchema describes the accepted config keys.
	ConfigSchema() map[string]any
}

// Registry provides processor lookup by type id. Population happens by
// explicit registration at startup.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register adds a processor under its type id. Re-registering a type
// replaces the previous processor.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.Type()] = p
}

// Get retrieves a processor by type id.
func (r *Registry) Get(processorType string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[processorType]
	return p, ok
}

// List returns sorted type ids of all registered processors.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.processors))
	for t := range r.processors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
