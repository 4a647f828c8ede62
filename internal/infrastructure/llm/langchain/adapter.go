package langchain

import (
	"context"
	"fmt"
	"strings"

	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/domain/entity"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var _ output.LLMPort = (*LangChainAdapter)(nil)

// LangChainAdapter is an alternative LLM backend built on langchaingo. It
// speaks to any OpenAI-compatible endpoint but relies on JSON mode plus a
// schema reminder in the prompt instead of strict structured outputs.
type LangChainAdapter struct {
	model  llms.Model
	name   string
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  output.LoggerPort
}

func NewLangChainAdapter(cfg Config) (*LangChainAdapter, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain client: %w", err)
	}

	return &LangChainAdapter{
		model:  model,
		name:   cfg.Model,
		logger: cfg.Logger,
	}, nil
}

func (a *LangChainAdapter) Decide(ctx context.Context, messages []entity.Message, schema output.DecisionSchema) (*entity.AgentDecision, entity.TokenUsage, error) {
	content := convertMessages(messages)

	resp, err := a.model.GenerateContent(ctx, content,
		llms.WithJSONMode(),
		llms.WithTemperature(0),
	)
	if err != nil {
		if isRateLimit(err) {
			return nil, entity.TokenUsage{}, &entity.RateLimitError{Err: err}
		}
		return nil, entity.TokenUsage{}, fmt.Errorf("generate content failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, entity.TokenUsage{}, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	usage := convertUsage(choice.GenerationInfo)

	decision, err := entity.DecodeDecision([]byte(choice.Content), schema.Actions)
	if err != nil {
		return nil, usage, err
	}
	return decision, usage, nil
}

func (a *LangChainAdapter) ModelName() string {
	return a.name
}

func convertMessages(messages []entity.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		result = append(result, llms.TextParts(convertRole(msg.Role), msg.Content))
	}
	return result
}

func convertRole(role entity.MessageRole) llms.ChatMessageType {
	switch role {
	case entity.RoleSystem:
		return llms.ChatMessageTypeSystem
	case entity.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func convertUsage(info map[string]any) entity.TokenUsage {
	return entity.TokenUsage{
		InputTokens:  intValue(info, "PromptTokens"),
		OutputTokens: intValue(info, "CompletionTokens"),
		TotalTokens:  intValue(info, "TotalTokens"),
	}
}

func intValue(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func isRateLimit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}
