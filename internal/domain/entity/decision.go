package entity

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ReasoningState is the fixed reasoning record the model must return with
// every decision.
type ReasoningState struct {
	EvaluationPreviousGoal string `json:"evaluation_previous_goal"`
	Memory                 string `json:"memory"`
	NextGoal               string `json:"next_goal"`
}

// ActionCall is one chosen action out of the closed registered set. On the
// wire it is an object with exactly one key: {"<name>": {<params>}}.
type ActionCall struct {
	Name   string
	Params json.RawMessage
}

func (c ActionCall) MarshalJSON() ([]byte, error) {
	if c.Name == "" {
		return []byte("{}"), nil
	}
	params := c.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	return json.Marshal(map[string]json.RawMessage{c.Name: params})
}

func (c *ActionCall) UnmarshalJSON(data []byte) error {
	var variants map[string]json.RawMessage
	if err := json.Unmarshal(data, &variants); err != nil {
		return err
	}
	if len(variants) != 1 {
		return fmt.Errorf("action must contain exactly one variant, got %d", len(variants))
	}
	for name, params := range variants {
		c.Name = name
		c.Params = params
	}
	return nil
}

// AgentDecision is the structured payload the model returns each step.
type AgentDecision struct {
	CurrentState ReasoningState `json:"current_state"`
	Action       ActionCall     `json:"action"`
}

var reasoningFields = []string{"evaluation_previous_goal", "memory", "next_goal"}

// DecodeDecision parses and validates raw model output. allowedActions is the
// frozen action set from the registry; nil skips the membership check. On
// failure the returned error is a *DecisionValidationError carrying the raw
// payload and the first violated field.
func DecodeDecision(raw []byte, allowedActions []string) (*AgentDecision, error) {
	var probe struct {
		CurrentState map[string]json.RawMessage `json:"current_state"`
		Action       json.RawMessage            `json:"action"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &DecisionValidationError{Field: "decision", Raw: string(raw)}
	}

	if probe.CurrentState == nil {
		return nil, &DecisionValidationError{Field: "current_state", Raw: string(raw)}
	}
	for _, field := range reasoningFields {
		value, ok := probe.CurrentState[field]
		if !ok {
			return nil, &DecisionValidationError{Field: "current_state." + field, Raw: string(raw)}
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, &DecisionValidationError{Field: "current_state." + field, Raw: string(raw)}
		}
	}

	if len(probe.Action) == 0 {
		return nil, &DecisionValidationError{Field: "action", Raw: string(raw)}
	}
	var call ActionCall
	if err := call.UnmarshalJSON(probe.Action); err != nil {
		return nil, &DecisionValidationError{Field: "action", Raw: string(raw)}
	}
	if allowedActions != nil && !slices.Contains(allowedActions, call.Name) {
		return nil, &DecisionValidationError{Field: "action." + call.Name, Raw: string(raw)}
	}

	var decision AgentDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, &DecisionValidationError{Field: "decision", Raw: string(raw)}
	}
	return &decision, nil
}
