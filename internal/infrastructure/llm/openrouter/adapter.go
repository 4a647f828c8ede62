package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

var _ output.LLMPort = (*OpenRouterAdapter)(nil)

type OpenRouterAdapter struct {
	client *openai.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://openrouter.ai/api/v1",
	}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.logger != nil {
		var bodyBytes []byte
		if req.Body != nil {
			bodyBytes, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		var requestData map[string]interface{}
		if len(bodyBytes) > 0 {
			json.Unmarshal(bodyBytes, &requestData)
		}

		t.logger.Info("HTTP Request",
			"method", req.Method,
			"url", req.URL.String(),
			"body", requestData,
		)
	}

	resp, err := t.base.RoundTrip(req)

	if t.logger != nil && resp != nil {
		t.logger.Info("HTTP Response",
			"status", resp.Status,
			"statusCode", resp.StatusCode,
		)
	}

	return resp, err
}

func NewOpenRouterAdapter(cfg Config) *OpenRouterAdapter {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	if cfg.Logger != nil {
		transport := &loggingTransport{
			base:   http.DefaultTransport,
			logger: cfg.Logger,
		}
		config.HTTPClient = &http.Client{
			Transport: transport,
		}
	}

	return &OpenRouterAdapter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Decide requests one decision constrained by the frozen schema. Provider
// throttling surfaces as *entity.RateLimitError and malformed model output as
// *entity.DecisionValidationError so the caller can classify the failure.
// Usage is reported even when decoding fails.
func (a *OpenRouterAdapter) Decide(ctx context.Context, messages []entity.Message, schema output.DecisionSchema) (*entity.AgentDecision, entity.TokenUsage, error) {
	schemaBytes, err := json.Marshal(schema.Raw)
	if err != nil {
		return nil, entity.TokenUsage{}, fmt.Errorf("failed to marshal decision schema: %w", err)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(messages),
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "agent_decision",
				Schema: json.RawMessage(schemaBytes),
				Strict: true,
			},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, entity.TokenUsage{}, &entity.RateLimitError{Err: err}
		}
		return nil, entity.TokenUsage{}, fmt.Errorf("chat completion failed: %w", err)
	}

	usage := convertUsage(resp.Usage)

	if len(resp.Choices) == 0 {
		return nil, usage, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	decision, err := entity.DecodeDecision([]byte(content), schema.Actions)
	if err != nil {
		return nil, usage, err
	}
	return decision, usage, nil
}

func (a *OpenRouterAdapter) ModelName() string {
	return a.model
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		result = append(result, openai.ChatCompletionMessage{
			Role:    convertRole(msg.Role),
			Content: msg.Content,
		})
	}
	return result
}

func convertRole(role entity.MessageRole) string {
	switch role {
	case entity.RoleSystem:
		return openai.ChatMessageRoleSystem
	case entity.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func convertUsage(usage openai.Usage) entity.TokenUsage {
	result := entity.TokenUsage{
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		TotalTokens:  usage.TotalTokens,
	}
	if usage.PromptTokensDetails != nil {
		result.InputDetails.CacheRead = usage.PromptTokensDetails.CachedTokens
		result.InputDetails.Audio = usage.PromptTokensDetails.AudioTokens
	}
	if usage.CompletionTokensDetails != nil {
		result.OutputDetails.Reasoning = usage.CompletionTokensDetails.ReasoningTokens
		result.OutputDetails.Audio = usage.CompletionTokensDetails.AudioTokens
	}
	return result
}
