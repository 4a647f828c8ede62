package output

import (
	"context"

	"browser-pilot/internal/domain/entity"
)

// BrowserPort is the environment the agent acts against. A port instance is
// exclusively owned by one agent run; concurrent callers are not supported.
type BrowserPort interface {
	// Observe captures an immutable snapshot of the current page state.
	// It is safe to call repeatedly; it waits for the page to settle up to a
	// bounded timeout and then proceeds with best-effort state.
	Observe(ctx context.Context, captureVisual bool) (*entity.Snapshot, error)

	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, index, clicks int) error
	Input(ctx context.Context, index int, text string) error
	OpenTab(ctx context.Context, url string) error
	SwitchTab(ctx context.Context, tabID string) error
	ExtractContent(ctx context.Context, format string) (string, error)
	Scroll(ctx context.Context, amount int) error

	CurrentURL() string

	// Close is idempotent.
	Close() error
}
