package action

import (
	"context"
	"encoding/json"
	"testing"

	"browser-pilot/internal/application/service"
	"browser-pilot/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBrowser struct {
	navigatedTo  string
	clicked      []int
	clickCounts  []int
	typed        map[int]string
	scrolled     []int
	openedTab    string
	switchedTo   string
	content      string
	extractedFmt string
}

func newRecordingBrowser() *recordingBrowser {
	return &recordingBrowser{typed: make(map[int]string), content: "page text"}
}

func (b *recordingBrowser) Observe(ctx context.Context, captureVisual bool) (*entity.Snapshot, error) {
	return &entity.Snapshot{}, nil
}

func (b *recordingBrowser) Navigate(ctx context.Context, url string) error {
	b.navigatedTo = url
	return nil
}

func (b *recordingBrowser) Click(ctx context.Context, index, clicks int) error {
	b.clicked = append(b.clicked, index)
	b.clickCounts = append(b.clickCounts, clicks)
	return nil
}

func (b *recordingBrowser) Input(ctx context.Context, index int, text string) error {
	b.typed[index] = text
	return nil
}

func (b *recordingBrowser) OpenTab(ctx context.Context, url string) error {
	b.openedTab = url
	return nil
}

func (b *recordingBrowser) SwitchTab(ctx context.Context, tabID string) error {
	b.switchedTo = tabID
	return nil
}

func (b *recordingBrowser) ExtractContent(ctx context.Context, format string) (string, error) {
	b.extractedFmt = format
	return b.content, nil
}

func (b *recordingBrowser) Scroll(ctx context.Context, amount int) error {
	b.scrolled = append(b.scrolled, amount)
	return nil
}

func (b *recordingBrowser) CurrentURL() string { return b.navigatedTo }
func (b *recordingBrowser) Close() error       { return nil }

func defaultRegistry(t *testing.T) *service.ActionRegistry {
	t.Helper()
	registry := service.NewActionRegistry()
	require.NoError(t, RegisterDefaults(registry))
	return registry
}

func dispatch(t *testing.T, registry *service.ActionRegistry, browser *recordingBrowser, name, params string) (entity.ActionResult, error) {
	t.Helper()
	spec, ok := registry.Get(name)
	require.True(t, ok, "action %s must be registered", name)
	return spec.Handler(context.Background(), json.RawMessage(params), browser)
}

func TestRegisterDefaults(t *testing.T) {
	registry := defaultRegistry(t)

	assert.Equal(t, []string{
		"search_google", "go_to_url", "click_element", "input_text",
		"extract_content", "scroll_down", "open_tab", "switch_tab", "done",
	}, registry.Names())
}

func TestSearchGoogle(t *testing.T) {
	registry := defaultRegistry(t)
	browser := newRecordingBrowser()

	result, err := dispatch(t, registry, browser, "search_google", `{"query":"weather in Berlin & Paris"}`)
	require.NoError(t, err)

	assert.Equal(t, "https://www.google.com/search?q=weather+in+Berlin+%26+Paris", browser.navigatedTo)
	assert.Contains(t, result.ExtractedContent, "weather in Berlin & Paris")
	assert.False(t, result.IsDone)
}

func TestGoToURL(t *testing.T) {
	registry := defaultRegistry(t)
	browser := newRecordingBrowser()

	result, err := dispatch(t, registry, browser, "go_to_url", `{"url":"https://example.com/a"}`)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", browser.navigatedTo)
	assert.Contains(t, result.ExtractedContent, "https://example.com/a")
}

func TestClickElement(t *testing.T) {
	registry := defaultRegistry(t)

	t.Run("default click count", func(t *testing.T) {
		browser := newRecordingBrowser()
		_, err := dispatch(t, registry, browser, "click_element", `{"index":4}`)
		require.NoError(t, err)
		assert.Equal(t, []int{4}, browser.clicked)
		assert.Equal(t, []int{1}, browser.clickCounts)
	})

	t.Run("explicit click count", func(t *testing.T) {
		browser := newRecordingBrowser()
		_, err := dispatch(t, registry, browser, "click_element", `{"index":2,"num_clicks":3}`)
		require.NoError(t, err)
		assert.Equal(t, []int{3}, browser.clickCounts)
	})

	t.Run("bad params are a handler error", func(t *testing.T) {
		browser := newRecordingBrowser()
		_, err := dispatch(t, registry, browser, "click_element", `{"index":"four"}`)
		assert.Error(t, err)
		assert.Empty(t, browser.clicked)
	})
}

func TestInputText(t *testing.T) {
	registry := defaultRegistry(t)
	browser := newRecordingBrowser()

	_, err := dispatch(t, registry, browser, "input_text", `{"index":7,"text":"hello"}`)
	require.NoError(t, err)
	assert.Equal(t, "hello", browser.typed[7])
}

func TestExtractContent(t *testing.T) {
	registry := defaultRegistry(t)

	t.Run("defaults to text", func(t *testing.T) {
		browser := newRecordingBrowser()
		result, err := dispatch(t, registry, browser, "extract_content", `{}`)
		require.NoError(t, err)
		assert.Equal(t, "text", browser.extractedFmt)
		assert.Equal(t, "page text", result.ExtractedContent)
	})

	t.Run("honours explicit format", func(t *testing.T) {
		browser := newRecordingBrowser()
		_, err := dispatch(t, registry, browser, "extract_content", `{"format":"html"}`)
		require.NoError(t, err)
		assert.Equal(t, "html", browser.extractedFmt)
	})
}

func TestScrollDown(t *testing.T) {
	registry := defaultRegistry(t)
	browser := newRecordingBrowser()

	_, err := dispatch(t, registry, browser, "scroll_down", `{"amount":600}`)
	require.NoError(t, err)
	assert.Equal(t, []int{600}, browser.scrolled)
}

func TestTabActions(t *testing.T) {
	registry := defaultRegistry(t)
	browser := newRecordingBrowser()

	_, err := dispatch(t, registry, browser, "open_tab", `{"url":"https://b.example"}`)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example", browser.openedTab)

	_, err = dispatch(t, registry, browser, "switch_tab", `{"tab_id":"TAB-2"}`)
	require.NoError(t, err)
	assert.Equal(t, "TAB-2", browser.switchedTo)
}

func TestDone(t *testing.T) {
	registry := defaultRegistry(t)
	browser := newRecordingBrowser()

	result, err := dispatch(t, registry, browser, "done", `{"text":"final answer"}`)
	require.NoError(t, err)
	assert.True(t, result.IsDone)
	assert.Equal(t, "final answer", result.ExtractedContent)
}
