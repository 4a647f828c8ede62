package output

import (
	"context"

	"browser-pilot/internal/domain/entity"
)

// DecisionSchema is the frozen structured-output contract built by the action
// registry: the full JSON schema of a decision payload plus the closed set of
// action names it admits, in registration order.
type DecisionSchema struct {
	Raw     map[string]any
	Actions []string
}

// LLMPort requests one structured decision from the model. Failures are
// classifiable: *entity.DecisionValidationError for unparseable output,
// *entity.RateLimitError for provider throttling, anything else is
// unclassified. Provider-reported usage is returned alongside the decision
// and is meaningful even when decoding failed.
type LLMPort interface {
	Decide(ctx context.Context, messages []entity.Message, schema DecisionSchema) (*entity.AgentDecision, entity.TokenUsage, error)
	ModelName() string
}
