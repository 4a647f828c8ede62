package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/application/service"
	"browser-pilot/internal/domain/entity"

	"github.com/google/uuid"
)

const (
	DefaultMaxFailures = 5
	DefaultRetryDelay  = 10 * time.Second
	DefaultMaxSteps    = 100

	maxLoggedContentLen = 2000
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type FailureReason string

const (
	ReasonNone                FailureReason = ""
	ReasonTooManyFailures     FailureReason = "too_many_consecutive_failures"
	ReasonStepBudgetExhausted FailureReason = "step_budget_exhausted"
)

type Config struct {
	MaxFailures          int
	RetryDelay           time.Duration
	UseVision            bool
	SaveConversationPath string
	// OwnsBrowser makes the run close the browser on every exit path. Leave
	// false when the browser was supplied by a caller that manages it.
	OwnsBrowser bool
}

func DefaultConfig() Config {
	return Config{
		MaxFailures: DefaultMaxFailures,
		RetryDelay:  DefaultRetryDelay,
		UseVision:   true,
	}
}

type Params struct {
	Task         string
	SystemPrompt string
	Browser      output.BrowserPort
	LLM          output.LLMPort
	Registry     *service.ActionRegistry
	Logger       output.LoggerPort
	Config       Config
}

// RunOutcome is the terminal report of a run. Permanent failure and step
// budget exhaustion are reported here, never raised.
type RunOutcome struct {
	Status  Status
	Reason  FailureReason
	Steps   int
	History []entity.HistoryRecord
	Usage   entity.TokenUsage
	Cost    float64
}

// RunAgentUseCase drives the agent state machine: observe the browser, request
// a structured decision, dispatch it, classify failures, append history, check
// termination. All mutable run state is owned by this instance; steps are
// strictly sequential.
type RunAgentUseCase struct {
	id         string
	task       string
	browser    output.BrowserPort
	llm        output.LLMPort
	registry   *service.ActionRegistry
	dispatcher *service.Dispatcher
	logger     output.LoggerPort
	cfg        Config

	schema   output.DecisionSchema
	pricing  entity.PricingCatalog
	messages []entity.Message
	history  *entity.HistoryLog
	usage    entity.TokenUsage

	consecutiveFailures int
	status              Status
	reason              FailureReason
	stepCount           int
	stopRequested       atomic.Bool

	// sleep is replaced in tests to observe the rate-limit delay.
	sleep func(time.Duration)
}

func NewRunAgentUseCase(p Params) (*RunAgentUseCase, error) {
	if p.Task == "" {
		return nil, fmt.Errorf("task is required")
	}
	if p.Browser == nil {
		return nil, fmt.Errorf("browser is required")
	}
	if p.LLM == nil {
		return nil, fmt.Errorf("llm is required")
	}
	if p.Registry == nil || p.Registry.Len() == 0 {
		return nil, fmt.Errorf("action registry is empty")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	cfg := p.Config
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	runID := uuid.NewString()
	uc := &RunAgentUseCase{
		id:         runID,
		task:       p.Task,
		browser:    p.Browser,
		llm:        p.LLM,
		registry:   p.Registry,
		dispatcher: service.NewDispatcher(p.Registry, p.Logger),
		logger:     p.Logger.WithField("run_id", runID),
		cfg:        cfg,
		schema:     p.Registry.DecisionSchema(),
		pricing:    entity.DefaultPricingCatalog(),
		history:    entity.NewHistoryLog(),
		status:     StatusRunning,
		sleep:      time.Sleep,
	}

	uc.messages = []entity.Message{
		{Role: entity.RoleSystem, Content: p.SystemPrompt},
		{Role: entity.RoleUser, Content: "Your task is: " + p.Task},
	}

	if cfg.SaveConversationPath != "" {
		uc.logger.Info("Saving conversation", "path", cfg.SaveConversationPath)
	}

	return uc, nil
}

// Run executes up to maxSteps steps and returns the full audit trail. The
// browser is released on every exit path when the run owns it.
func (uc *RunAgentUseCase) Run(ctx context.Context, maxSteps int) (*RunOutcome, error) {
	if uc.status != StatusRunning {
		return nil, fmt.Errorf("run already terminated with status %s", uc.status)
	}
	if maxSteps < 0 {
		maxSteps = DefaultMaxSteps
	}

	uc.logger.Info("Starting task", "task", uc.task, "max_steps", maxSteps)

	if uc.cfg.OwnsBrowser {
		defer func() {
			if err := uc.browser.Close(); err != nil {
				uc.logger.Warn("Browser close failed", "error", err)
			}
		}()
	}

	for step := 1; step <= maxSteps; step++ {
		if uc.cancelled(ctx) {
			uc.status = StatusCancelled
			uc.logger.Warn("Run cancelled", "steps", uc.stepCount)
			break
		}

		uc.step(ctx, step)
		uc.stepCount = step

		if uc.consecutiveFailures >= uc.cfg.MaxFailures {
			uc.status = StatusFailed
			uc.reason = ReasonTooManyFailures
			uc.logger.Error("Stopping run", "reason", fmt.Sprintf("%d consecutive failures", uc.cfg.MaxFailures))
			break
		}
		if uc.history.IsDone() {
			uc.status = StatusSucceeded
			uc.logger.Info("Task completed successfully", "steps", uc.stepCount)
			break
		}
	}

	if uc.status == StatusRunning {
		uc.status = StatusFailed
		uc.reason = ReasonStepBudgetExhausted
		uc.logger.Error("Failed to complete task in maximum steps", "max_steps", maxSteps)
	}

	return uc.outcome(), nil
}

// Stop requests termination; it takes effect between steps, never mid-step.
func (uc *RunAgentUseCase) Stop() {
	uc.stopRequested.Store(true)
}

func (uc *RunAgentUseCase) cancelled(ctx context.Context) bool {
	return ctx.Err() != nil || uc.stopRequested.Load()
}

// step runs one observe -> decide -> dispatch -> record iteration. Every
// step, success or failure, appends exactly one history record.
func (uc *RunAgentUseCase) step(ctx context.Context, n int) {
	uc.logger.Info("Step", "n", n)

	var decision *entity.AgentDecision
	var result entity.ActionResult

	snapshot, err := uc.browser.Observe(ctx, uc.cfg.UseVision)
	if err != nil {
		result = uc.handleStepError(&entity.ObservationError{Err: err})
		uc.history.Append(entity.HistoryRecord{Result: result, Snapshot: snapshot})
		return
	}

	// The rendered observation is speculative until a decision succeeds.
	observation := renderObservation(snapshot)
	request := append(slices.Clone(uc.messages), observation)

	parsed, usage, err := uc.llm.Decide(ctx, request, uc.schema)
	uc.usage.Add(usage)
	if err != nil {
		result = uc.handleStepError(err)
		uc.history.Append(entity.HistoryRecord{Result: result, Snapshot: snapshot})
		return
	}

	uc.logDecision(parsed)
	uc.saveConversation(n, request, parsed)

	result, err = uc.dispatcher.Dispatch(ctx, parsed.Action, uc.browser)
	if err != nil {
		result = uc.handleStepError(err)
		uc.history.Append(entity.HistoryRecord{Result: result, Snapshot: snapshot})
		return
	}

	decision = parsed
	uc.consecutiveFailures = 0
	uc.messages = append(uc.messages, observation, entity.Message{
		Role:    entity.RoleAssistant,
		Content: marshalDecision(parsed),
	})

	if result.ExtractedContent != "" {
		uc.logger.Info("Result", "content", truncate(result.ExtractedContent, maxLoggedContentLen))
	}
	if result.Error != "" {
		uc.logger.Warn("Action reported error", "error", result.Error)
	}

	uc.history.Append(entity.HistoryRecord{Decision: decision, Result: result, Snapshot: snapshot})
}

// handleStepError classifies a step-level failure, increments the failure
// counter, appends one recovery message, and synthesizes the error result.
func (uc *RunAgentUseCase) handleStepError(err error) entity.ActionResult {
	msg := entity.FormatError(err)
	attempt := fmt.Sprintf("failure %d of %d", uc.consecutiveFailures+1, uc.cfg.MaxFailures)

	var validationErr *entity.DecisionValidationError
	var rateLimitErr *entity.RateLimitError
	switch {
	case errors.As(err, &validationErr):
		uc.logger.Error("Step failed", "attempt", attempt, "kind", "validation", "error", msg, "raw", truncate(validationErr.Raw, maxLoggedContentLen))
	case errors.As(err, &rateLimitErr):
		uc.logger.Warn("Step failed", "attempt", attempt, "kind", "rate_limit", "error", msg)
		uc.sleep(uc.cfg.RetryDelay)
	default:
		uc.logger.Error("Step failed", "attempt", attempt, "kind", "unclassified", "error", msg)
	}

	uc.consecutiveFailures++
	uc.messages = append(uc.messages, entity.Message{Role: entity.RoleUser, Content: msg})
	return entity.ActionResult{Error: msg}
}

func (uc *RunAgentUseCase) logDecision(d *entity.AgentDecision) {
	uc.logger.Info("Evaluation", "value", d.CurrentState.EvaluationPreviousGoal)
	uc.logger.Info("Memory", "value", d.CurrentState.Memory)
	uc.logger.Info("Next goal", "value", d.CurrentState.NextGoal)
	uc.logger.Info("Action", "value", marshalDecision(d))
}

func (uc *RunAgentUseCase) outcome() *RunOutcome {
	return &RunOutcome{
		Status:  uc.status,
		Reason:  uc.reason,
		Steps:   uc.history.Len(),
		History: uc.history.Records(),
		Usage:   uc.usage,
		Cost:    uc.Cost(),
	}
}

func (uc *RunAgentUseCase) CurrentFailureCount() int {
	return uc.consecutiveFailures
}

func (uc *RunAgentUseCase) IsTerminated() bool {
	return uc.status != StatusRunning
}

func (uc *RunAgentUseCase) History() []entity.HistoryRecord {
	return uc.history.Records()
}

func (uc *RunAgentUseCase) Usage() entity.TokenUsage {
	return uc.usage
}

// ExportDiagram renders the run as a mermaid directed graph.
func (uc *RunAgentUseCase) ExportDiagram() string {
	return uc.history.Mermaid()
}

// Cost derives the running cost estimate from accumulated usage. Unknown
// models cost zero; this is telemetry, not a correctness gate.
func (uc *RunAgentUseCase) Cost() float64 {
	cost, ok := uc.pricing.Cost(uc.llm.ModelName(), uc.usage)
	if !ok {
		uc.logger.Debug("Model not in pricing catalog", "model", uc.llm.ModelName())
		return 0
	}
	return cost
}

// saveConversation persists the exact request messages and parsed decision
// for one step. Purely diagnostic; failures are logged and ignored.
func (uc *RunAgentUseCase) saveConversation(step int, request []entity.Message, decision *entity.AgentDecision) {
	if uc.cfg.SaveConversationPath == "" {
		return
	}

	dir := filepath.Dir(uc.cfg.SaveConversationPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		uc.logger.Warn("Conversation save failed", "error", err)
		return
	}

	var b strings.Builder
	for _, msg := range request {
		fmt.Fprintf(&b, " %s \n", strings.ToUpper(string(msg.Role)))
		b.WriteString(prettyIfJSON(msg.Content))
		b.WriteString("\n\n")
	}
	b.WriteString(" RESPONSE\n")
	b.WriteString(prettyIfJSON(marshalDecision(decision)))
	b.WriteString("\n")

	path := fmt.Sprintf("%s_%d.txt", uc.cfg.SaveConversationPath, step)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		uc.logger.Warn("Conversation save failed", "error", err)
	}
}

// renderObservation formats a snapshot as the per-step user message.
func renderObservation(snapshot *entity.Snapshot) entity.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Current url: %s\n", snapshot.URL)
	fmt.Fprintf(&b, "Current page title: %s\n", snapshot.Title)
	if snapshot.PreviousURL != "" && snapshot.PreviousURL != snapshot.URL {
		fmt.Fprintf(&b, "Previous url: %s\n", snapshot.PreviousURL)
	}
	if len(snapshot.Tabs) > 0 {
		b.WriteString("Available tabs:\n")
		for i, tab := range snapshot.Tabs {
			marker := ""
			if tab.ID == snapshot.CurrentTabID {
				marker = " (current)"
			}
			fmt.Fprintf(&b, "Tab %d: %s (%s)%s\n", i+1, tab.Title, tab.URL, marker)
		}
	}
	if len(snapshot.Elements) > 0 {
		b.WriteString("Interactive elements:\n")
		for _, el := range snapshot.Elements {
			label := el.Text
			if label == "" {
				label = el.Label
			}
			fmt.Fprintf(&b, "[%d] <%s> %s\n", el.Index, el.Type, label)
		}
	}
	if snapshot.Content != "" {
		b.WriteString("Page content:\n")
		b.WriteString(snapshot.Content)
		b.WriteString("\n")
	}
	return entity.Message{Role: entity.RoleUser, Content: b.String()}
}

func marshalDecision(d *entity.AgentDecision) string {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("{\"error\":%q}", err.Error())
	}
	return string(data)
}

func prettyIfJSON(s string) string {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return strings.TrimSpace(s)
	}
	return buf.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "... (truncated)"
}
