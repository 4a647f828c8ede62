package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"browser-pilot/internal/application/usecase"
	"browser-pilot/internal/di"
	"browser-pilot/internal/infrastructure/env"

	"github.com/spf13/cobra"
)

var (
	flagTask             string
	flagMaxSteps         int
	flagHeadless         bool
	flagNoVision         bool
	flagBackend          string
	flagMaxFailures      int
	flagRetryDelay       time.Duration
	flagSaveConversation string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agent",
		Short: "LLM-driven browser automation agent",
		RunE:  run,
	}

	rootCmd.Flags().StringVarP(&flagTask, "task", "t", "", "task for the agent (reads from stdin if omitted)")
	rootCmd.Flags().IntVar(&flagMaxSteps, "max-steps", 100, "maximum number of agent steps")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", false, "run the browser without a visible window")
	rootCmd.Flags().BoolVar(&flagNoVision, "no-vision", false, "disable page screenshots in observations")
	rootCmd.Flags().StringVar(&flagBackend, "backend", "", "llm backend: openrouter or langchain")
	rootCmd.Flags().IntVar(&flagMaxFailures, "max-failures", 0, "consecutive failure ceiling (0 = default)")
	rootCmd.Flags().DurationVar(&flagRetryDelay, "retry-delay", 0, "pause after a rate limit error (0 = default)")
	rootCmd.Flags().StringVar(&flagSaveConversation, "save-conversation", "", "path prefix for per-step conversation dumps")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	envService := env.NewEnvService()

	task := flagTask
	if task == "" {
		fmt.Println("\nВведите задачу для агента:")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Fatal("Ошибка чтения ввода: ", err)
		}
		task = strings.TrimSpace(line)
	}
	if task == "" {
		return fmt.Errorf("task is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	backend := flagBackend
	if backend == "" {
		backend = envService.Get("MODEL_BACKEND")
	}

	container, err := di.NewContainer(ctx, di.Config{
		Task:                 task,
		APIKey:               envService.MustGet("OPENROUTER_API_KEY"),
		Model:                envService.MustGet("OPENROUTER_MODEL_NAME"),
		Backend:              backend,
		BrowserHeadless:      flagHeadless,
		UseVision:            !flagNoVision,
		MaxFailures:          flagMaxFailures,
		RetryDelay:           flagRetryDelay,
		SaveConversationPath: flagSaveConversation,
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации: %v", err)
	}
	defer container.Close()

	container.Logger.Info("Task started", "task", task)
	fmt.Println("\nАгент начал работу...")

	outcome, err := container.Agent.Run(ctx, flagMaxSteps)
	if err != nil {
		container.Logger.Error("Task failed", "error", err)
		fmt.Printf("\nОшибка выполнения: %v\n", err)
		os.Exit(1)
	}

	container.Logger.Info("Task finished",
		"status", outcome.Status,
		"steps", outcome.Steps,
		"totalTokens", outcome.Usage.TotalTokens,
		"cost", outcome.Cost,
	)

	fmt.Printf("\nСтатус: %s (%d шагов, $%.4f)\n", outcome.Status, outcome.Steps, outcome.Cost)

	if len(outcome.History) > 0 {
		last := outcome.History[len(outcome.History)-1]
		if last.Result.IsDone && last.Result.ExtractedContent != "" {
			fmt.Println("\nФИНАЛЬНЫЙ ОТВЕТ:")
			fmt.Println(last.Result.ExtractedContent)
		}
	}

	if outcome.Status != usecase.StatusSucceeded && outcome.Reason != "" {
		fmt.Printf("\nЗадача не выполнена: %s\n", outcome.Reason)
	}

	return nil
}
