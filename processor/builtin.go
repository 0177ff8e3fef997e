package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowkit-io/flowkit/graph"
)

// RegisterBuiltins adds the small set of processors that ship with the
// engine: enough to run real pipelines in tests and examples.
func RegisterBuiltins(r *Registry) {
	r.Register(&Echo{})
	r.Register(&Transform{})
	r.Register(&Gateway{})
}

// Echo copies its inputs to its result output unchanged.
type Echo struct{}

func (e *Echo) Type() string { return "echo" }

func (e *Echo) Process(_ context.Context, inputs map[string]any, _ map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		out[k] = v
	}
	if len(out) == 0 {
		out[graph.DefaultPort] = nil
	}
	out["result"] = inputs
	return out, nil
}

func (e *Echo) ValidateInputs(map[string]any) bool { return true }
func (e *Echo) InputSchema() []graph.Port          { return []graph.Port{{Name: graph.DefaultPort}} }
func (e *Echo) OutputSchema() []graph.Port         { return []graph.Port{{Name: "result"}} }
func (e *Echo) ConfigSchema() map[string]any       { return nil }

// Transform applies a string operation declared in config to its text input.
type Transform struct{}

func (t *Transform) Type() string { return "transform" }

func (t *Transform) Process(_ context.Context, inputs map[string]any, config map[string]any) (map[string]any, error) {
	text, _ := inputs["text"].(string)
	op, _ := config["operation"].(string)

	switch op {
	case "upper":
		text = strings.ToUpper(text)
	case "lower":
		text = strings.ToLower(text)
	case "trim":
		text = strings.TrimSpace(text)
	case "", "none":
	default:
		return nil, fmt.Errorf("transform: unknown operation %q", op)
	}

	return map[string]any{"result": text}, nil
}

func (t *Transform) ValidateInputs(inputs map[string]any) bool {
	if len(inputs) == 0 {
		return true
	}
	_, ok := inputs["text"]
	return ok
}

func (t *Transform) InputSchema() []graph.Port {
	return []graph.Port{{Name: "text", Type: "string", Required: true}}
}

func (t *Transform) OutputSchema() []graph.Port {
	return []graph.Port{{Name: "result", Type: "string"}}
}

func (t *Transform) ConfigSchema() map[string]any {
	return map[string]any{"operation": "upper|lower|trim|none"}
}

// Gateway evaluates a boolean condition input and emits on the matching
// named branch output ("True" or "False").
type Gateway struct{}

func (g *Gateway) Type() string { return "gateway" }

func (g *Gateway) Process(_ context.Context, inputs map[string]any, _ map[string]any) (map[string]any, error) {
	cond, _ := inputs["condition"].(bool)
	branch := "False"
	if cond {
		branch = "True"
	}
	return map[string]any{branch: inputs["value"], "branch": branch}, nil
}

func (g *Gateway) ValidateInputs(inputs map[string]any) bool {
	if len(inputs) == 0 {
		return true
	}
	_, ok := inputs["condition"]
	return ok
}

func (g *Gateway) InputSchema() []graph.Port {
	return []graph.Port{
		{Name: "condition", Type: "bool", Required: true},
		{Name: "value"},
	}
}

func (g *Gateway) OutputSchema() []graph.Port {
	return []graph.Port{{Name: "True"}, {Name: "False"}, {Name: "branch", Type: "string"}}
}

func (g *Gateway) ConfigSchema() map[string]any { return nil }
