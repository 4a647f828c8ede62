package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any)                   {}
func (nopLogger) Info(msg string, args ...any)                    {}
func (nopLogger) Warn(msg string, args ...any)                    {}
func (nopLogger) Error(msg string, args ...any)                   {}
func (l nopLogger) WithField(key string, value any) output.LoggerPort { return l }
func (l nopLogger) WithFields(fields map[string]any) output.LoggerPort { return l }
func (nopLogger) Close() error                                    { return nil }

func TestDispatcherDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown action", func(t *testing.T) {
		dispatcher := NewDispatcher(NewActionRegistry(), nopLogger{})

		_, err := dispatcher.Dispatch(ctx, entity.ActionCall{Name: "teleport"}, nil)
		var unknownErr *entity.UnknownActionError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "teleport", unknownErr.Name)
	})

	t.Run("handler result passes through", func(t *testing.T) {
		registry := NewActionRegistry()
		var gotParams string
		require.NoError(t, registry.Register(ActionSpec{
			Name: "done",
			Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
				gotParams = string(params)
				return entity.ActionResult{IsDone: true, ExtractedContent: "final answer"}, nil
			},
		}))
		dispatcher := NewDispatcher(registry, nopLogger{})

		result, err := dispatcher.Dispatch(ctx, entity.ActionCall{
			Name:   "done",
			Params: json.RawMessage(`{"text":"final answer"}`),
		}, nil)
		require.NoError(t, err)
		assert.True(t, result.IsDone)
		assert.Equal(t, "final answer", result.ExtractedContent)
		assert.JSONEq(t, `{"text":"final answer"}`, gotParams)
	})

	t.Run("handler-set result error is not a dispatch error", func(t *testing.T) {
		registry := NewActionRegistry()
		require.NoError(t, registry.Register(ActionSpec{
			Name: "click_element",
			Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
				return entity.ActionResult{Error: "element 7 is not clickable"}, nil
			},
		}))
		dispatcher := NewDispatcher(registry, nopLogger{})

		result, err := dispatcher.Dispatch(ctx, entity.ActionCall{Name: "click_element"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "element 7 is not clickable", result.Error)
	})

	t.Run("handler error is wrapped with the action name", func(t *testing.T) {
		registry := NewActionRegistry()
		boom := errors.New("invalid params")
		require.NoError(t, registry.Register(ActionSpec{
			Name: "go_to_url",
			Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
				return entity.ActionResult{}, boom
			},
		}))
		dispatcher := NewDispatcher(registry, nopLogger{})

		result, err := dispatcher.Dispatch(ctx, entity.ActionCall{Name: "go_to_url"}, nil)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), `action "go_to_url"`)
		assert.Equal(t, entity.ActionResult{}, result)
	})

	t.Run("handler panic is recovered into an error", func(t *testing.T) {
		registry := NewActionRegistry()
		require.NoError(t, registry.Register(ActionSpec{
			Name: "scroll_down",
			Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
				panic("nil page")
			},
		}))
		dispatcher := NewDispatcher(registry, nopLogger{})

		result, err := dispatcher.Dispatch(ctx, entity.ActionCall{Name: "scroll_down"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
		assert.Contains(t, err.Error(), "nil page")
		assert.Equal(t, entity.ActionResult{}, result)
	})
}
