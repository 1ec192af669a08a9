package chat

import (
	"fmt"
	"sort"

	"github.com/pcurran/diarist/pkg/types"
)

// ArgumentSpec describes one argument of a tool for the model-facing catalog.
type ArgumentSpec struct {
	// Type is the JSON schema type of the argument ("string", "integer", ...).
	Type string

	// Required marks the argument as mandatory.
	Required bool

	// Description is the human-readable explanation shown to the model.
	Description string
}

// ToolSpec declares one invocable calendar action. Immutable after
// registration.
type ToolSpec struct {
	Name        string
	Description string

	// Arguments maps argument name to its schema. The schema feeds the
	// model-facing catalog only; runtime validation happens against the
	// typed argument structs in the executor.
	Arguments map[string]ArgumentSpec
}

// Registry holds the set of tools the model may request, in registration
// order. The order is what the model sees first when multiple tools could
// apply; dispatch itself is by exact name match only.
//
// A Registry is built once at startup and read-only afterwards, so no
// locking is needed.
type Registry struct {
	specs map[string]ToolSpec
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]ToolSpec)}
}

// Register adds spec to the registry. It returns [ErrDuplicateTool] if a tool
// with the same name is already present.
func (r *Registry) Register(spec ToolSpec) error {
	if _, ok := r.specs[spec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, spec.Name)
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Get returns the spec for name, or [ErrUnknownTool] if absent.
func (r *Registry) Get(name string) (ToolSpec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return ToolSpec{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return spec, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// DescribeAll returns all specs in registration order.
func (r *Registry) DescribeAll() []ToolSpec {
	out := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

// Catalog renders the registry as the tool definitions handed to the model
// with every completion request, in registration order.
func (r *Registry) Catalog() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]

		properties := make(map[string]any, len(spec.Arguments))
		var required []string
		for argName, arg := range spec.Arguments {
			properties[argName] = map[string]any{
				"type":        arg.Type,
				"description": arg.Description,
			}
			if arg.Required {
				required = append(required, argName)
			}
		}

		params := map[string]any{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			sort.Strings(required)
			params["required"] = required
		}

		defs = append(defs, types.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  params,
		})
	}
	return defs
}
