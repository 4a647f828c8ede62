package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/domain/entity"
)

// ActionHandler executes one action against the browser. A handler reports an
// action-level problem by setting ActionResult.Error; a returned Go error is
// treated by the loop as a step-level failure.
type ActionHandler func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error)

type ActionSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     ActionHandler
}

// ActionRegistry holds the closed action set of an agent. The set is built at
// construction time and frozen into decision schemas on demand.
type ActionRegistry struct {
	order   []string
	actions map[string]ActionSpec
}

func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		actions: make(map[string]ActionSpec),
	}
}

func (r *ActionRegistry) Register(spec ActionSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("action name is required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("action %q has no handler", spec.Name)
	}
	if _, exists := r.actions[spec.Name]; exists {
		return &entity.DuplicateActionError{Name: spec.Name}
	}
	r.actions[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

func (r *ActionRegistry) Get(name string) (ActionSpec, bool) {
	spec, ok := r.actions[name]
	return spec, ok
}

func (r *ActionRegistry) Len() int {
	return len(r.order)
}

// Names returns the registered action names in registration order.
func (r *ActionRegistry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Describe produces the deterministic, registration-ordered capability listing
// used for prompt construction.
func (r *ActionRegistry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		spec := r.actions[name]
		params, err := json.Marshal(spec.Parameters)
		if err != nil {
			params = []byte("{}")
		}
		fmt.Fprintf(&b, "- %s: %s\n  Parameters: %s\n", name, spec.Description, params)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DecisionSchema builds the structured-output schema over the actions
// registered as of this call. Registrations made afterwards do not widen
// schemas already handed out.
func (r *ActionRegistry) DecisionSchema() output.DecisionSchema {
	variants := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		spec := r.actions[name]
		params := spec.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		variants = append(variants, map[string]any{
			"type":                 "object",
			"properties":           map[string]any{name: params},
			"required":             []string{name},
			"additionalProperties": false,
		})
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"current_state": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"evaluation_previous_goal": map[string]any{"type": "string"},
					"memory":                   map[string]any{"type": "string"},
					"next_goal":                map[string]any{"type": "string"},
				},
				"required":             []string{"evaluation_previous_goal", "memory", "next_goal"},
				"additionalProperties": false,
			},
			"action": map[string]any{"anyOf": variants},
		},
		"required":             []string{"current_state", "action"},
		"additionalProperties": false,
	}

	return output.DecisionSchema{
		Raw:     schema,
		Actions: r.Names(),
	}
}
