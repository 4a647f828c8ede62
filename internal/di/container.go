package di

import (
	"context"
	"fmt"
	"time"

	"browser-pilot/internal/adapter/action"
	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/application/service"
	"browser-pilot/internal/application/usecase"
	"browser-pilot/internal/infrastructure/browser/rod"
	"browser-pilot/internal/infrastructure/llm/langchain"
	"browser-pilot/internal/infrastructure/llm/openrouter"
	"browser-pilot/internal/infrastructure/logger"
	"browser-pilot/internal/infrastructure/prompts"
)

type Container struct {
	Browser  output.BrowserPort
	LLM      output.LLMPort
	Logger   output.LoggerPort
	Registry *service.ActionRegistry
	Agent    *usecase.RunAgentUseCase
}

type Config struct {
	Task                 string
	APIKey               string
	Model                string
	BaseURL              string
	Backend              string // "openrouter" (default) or "langchain"
	BrowserHeadless      bool
	UseVision            bool
	MaxFailures          int
	RetryDelay           time.Duration
	SaveConversationPath string
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	log, err := logger.NewZapAdapter(logger.DefaultConfig(cfg.Task))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	browserCfg := rod.DefaultConfig()
	browserCfg.Headless = cfg.BrowserHeadless
	browser, err := rod.NewBrowserAdapter(ctx, browserCfg)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	llm, err := newLLM(cfg, log)
	if err != nil {
		browser.Close()
		log.Close()
		return nil, err
	}

	registry := service.NewActionRegistry()
	if err := action.RegisterDefaults(registry); err != nil {
		browser.Close()
		log.Close()
		return nil, fmt.Errorf("failed to register actions: %w", err)
	}

	systemPrompt, err := prompts.GenerateSystemPrompt(registry.Describe(), time.Now())
	if err != nil {
		browser.Close()
		log.Close()
		return nil, fmt.Errorf("failed to generate system prompt: %w", err)
	}

	agentCfg := usecase.DefaultConfig()
	agentCfg.UseVision = cfg.UseVision
	agentCfg.SaveConversationPath = cfg.SaveConversationPath
	if cfg.MaxFailures > 0 {
		agentCfg.MaxFailures = cfg.MaxFailures
	}
	if cfg.RetryDelay > 0 {
		agentCfg.RetryDelay = cfg.RetryDelay
	}

	agent, err := usecase.NewRunAgentUseCase(usecase.Params{
		Task:         cfg.Task,
		SystemPrompt: systemPrompt,
		Browser:      browser,
		LLM:          llm,
		Registry:     registry,
		Logger:       log,
		Config:       agentCfg,
	})
	if err != nil {
		browser.Close()
		log.Close()
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return &Container{
		Browser:  browser,
		LLM:      llm,
		Logger:   log,
		Registry: registry,
		Agent:    agent,
	}, nil
}

func newLLM(cfg Config, log output.LoggerPort) (output.LLMPort, error) {
	switch cfg.Backend {
	case "langchain":
		llm, err := langchain.NewLangChainAdapter(langchain.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create langchain backend: %w", err)
		}
		return llm, nil
	case "", "openrouter":
		llmCfg := openrouter.DefaultConfig(cfg.APIKey, cfg.Model)
		if cfg.BaseURL != "" {
			llmCfg.BaseURL = cfg.BaseURL
		}
		llmCfg.Logger = log
		return openrouter.NewOpenRouterAdapter(llmCfg), nil
	default:
		return nil, fmt.Errorf("unknown llm backend: %s", cfg.Backend)
	}
}

func (c *Container) Close() {
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
