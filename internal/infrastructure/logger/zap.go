package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"browser-pilot/internal/application/port/output"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var _ output.LoggerPort = (*ZapAdapter)(nil)

// ZapAdapter writes human-readable lines to stdout and structured JSON to a
// per-task rotated file under log/.
type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

type Config struct {
	TaskName     string
	ConsoleLevel zapcore.Level
	FileLevel    zapcore.Level
	LogDir       string
}

func DefaultConfig(taskName string) Config {
	return Config{
		TaskName:     taskName,
		ConsoleLevel: zapcore.InfoLevel,
		FileLevel:    zapcore.DebugLevel,
		LogDir:       "log",
	}
}

func NewZapAdapter(cfg Config) (*ZapAdapter, error) {
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	safeName := sanitize(cfg.TaskName)
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), safeName)

	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, filename),
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
	})

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderCfg),
			zapcore.Lock(os.Stdout),
			cfg.ConsoleLevel,
		),
		zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderCfg),
			fileSink,
			cfg.FileLevel,
		),
	)

	return &ZapAdapter{
		sugar: zap.New(core).Sugar(),
	}, nil
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *ZapAdapter {
	return &ZapAdapter{sugar: zap.NewNop().Sugar()}
}

func (l *ZapAdapter) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l *ZapAdapter) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l *ZapAdapter) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l *ZapAdapter) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}

func (l *ZapAdapter) WithField(key string, value any) output.LoggerPort {
	return &ZapAdapter{sugar: l.sugar.With(key, value)}
}

func (l *ZapAdapter) WithFields(fields map[string]any) output.LoggerPort {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &ZapAdapter{sugar: l.sugar.With(args...)}
}

func (l *ZapAdapter) Close() error {
	// Sync on a stdout sink fails on some platforms; the error carries no
	// actionable information.
	_ = l.sugar.Sync()
	return nil
}

func sanitize(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result = append(result, r)
		} else {
			result = append(result, '_')
		}
	}
	s = string(result)
	if s == "" {
		return "task"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
