package action

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/application/service"
	"browser-pilot/internal/domain/entity"
)

// RegisterDefaults wires the built-in browser action set into the registry in
// a fixed order; the order is part of the prompt contract.
func RegisterDefaults(registry *service.ActionRegistry) error {
	specs := []service.ActionSpec{
		searchGoogle(),
		goToURL(),
		clickElement(),
		inputText(),
		extractContent(),
		scrollDown(),
		openTab(),
		switchTab(),
		done(),
	}
	for _, spec := range specs {
		if err := registry.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func searchGoogle() service.ActionSpec {
	return service.ActionSpec{
		Name:        "search_google",
		Description: "Searches Google for the query in the current tab",
		Parameters: objectSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query"},
		}, "query"),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			target := "https://www.google.com/search?q=" + url.QueryEscape(input.Query)
			if err := browser.Navigate(ctx, target); err != nil {
				return entity.ActionResult{}, err
			}
			return entity.ActionResult{ExtractedContent: fmt.Sprintf("Searched Google for %q", input.Query)}, nil
		},
	}
}

func goToURL() service.ActionSpec {
	return service.ActionSpec{
		Name:        "go_to_url",
		Description: "Navigates the current tab to the given URL",
		Parameters: objectSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "URL to navigate to"},
		}, "url"),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			if err := browser.Navigate(ctx, input.URL); err != nil {
				return entity.ActionResult{}, err
			}
			return entity.ActionResult{ExtractedContent: "Navigated to " + browser.CurrentURL()}, nil
		},
	}
}

func clickElement() service.ActionSpec {
	return service.ActionSpec{
		Name:        "click_element",
		Description: "Clicks an interactive element by its index from the last observation",
		Parameters: objectSchema(map[string]any{
			"index":      map[string]any{"type": "integer", "description": "Element index"},
			"num_clicks": map[string]any{"type": "integer", "description": "Number of clicks, default 1"},
		}, "index"),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				Index     int `json:"index"`
				NumClicks int `json:"num_clicks"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			if input.NumClicks <= 0 {
				input.NumClicks = 1
			}
			if err := browser.Click(ctx, input.Index, input.NumClicks); err != nil {
				return entity.ActionResult{Error: err.Error()}, nil
			}
			return entity.ActionResult{ExtractedContent: fmt.Sprintf("Clicked element %d", input.Index)}, nil
		},
	}
}

func inputText() service.ActionSpec {
	return service.ActionSpec{
		Name:        "input_text",
		Description: "Types text into an input element by its index from the last observation",
		Parameters: objectSchema(map[string]any{
			"index": map[string]any{"type": "integer", "description": "Element index"},
			"text":  map[string]any{"type": "string", "description": "Text to input"},
		}, "index", "text"),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				Index int    `json:"index"`
				Text  string `json:"text"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			if err := browser.Input(ctx, input.Index, input.Text); err != nil {
				return entity.ActionResult{Error: err.Error()}, nil
			}
			return entity.ActionResult{ExtractedContent: fmt.Sprintf("Input text into element %d", input.Index)}, nil
		},
	}
}

func extractContent() service.ActionSpec {
	return service.ActionSpec{
		Name:        "extract_content",
		Description: "Extracts the current page content as text, markdown or html",
		Parameters: objectSchema(map[string]any{
			"format": map[string]any{
				"type":        "string",
				"enum":        []string{"text", "markdown", "html"},
				"description": "Output format, default text",
			},
		}),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				Format string `json:"format"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			if input.Format == "" {
				input.Format = "text"
			}
			content, err := browser.ExtractContent(ctx, input.Format)
			if err != nil {
				return entity.ActionResult{Error: err.Error()}, nil
			}
			return entity.ActionResult{ExtractedContent: content}, nil
		},
	}
}

func scrollDown() service.ActionSpec {
	return service.ActionSpec{
		Name:        "scroll_down",
		Description: "Scrolls the page down by the given pixel amount, or one page if omitted",
		Parameters: objectSchema(map[string]any{
			"amount": map[string]any{"type": "integer", "description": "Pixels to scroll, omit for one page"},
		}),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				Amount int `json:"amount"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			if err := browser.Scroll(ctx, input.Amount); err != nil {
				return entity.ActionResult{Error: err.Error()}, nil
			}
			return entity.ActionResult{ExtractedContent: "Scrolled down"}, nil
		},
	}
}

func openTab() service.ActionSpec {
	return service.ActionSpec{
		Name:        "open_tab",
		Description: "Opens the URL in a new tab and switches to it",
		Parameters: objectSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "URL to open"},
		}, "url"),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			if err := browser.OpenTab(ctx, input.URL); err != nil {
				return entity.ActionResult{Error: err.Error()}, nil
			}
			return entity.ActionResult{ExtractedContent: "Opened new tab with " + input.URL}, nil
		},
	}
}

func switchTab() service.ActionSpec {
	return service.ActionSpec{
		Name:        "switch_tab",
		Description: "Switches to the tab with the given id from the last observation",
		Parameters: objectSchema(map[string]any{
			"tab_id": map[string]any{"type": "string", "description": "Tab id"},
		}, "tab_id"),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				TabID string `json:"tab_id"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			if err := browser.SwitchTab(ctx, input.TabID); err != nil {
				return entity.ActionResult{Error: err.Error()}, nil
			}
			return entity.ActionResult{ExtractedContent: "Switched to tab " + input.TabID}, nil
		},
	}
}

func done() service.ActionSpec {
	return service.ActionSpec{
		Name:        "done",
		Description: "Marks the task as complete with the final answer",
		Parameters: objectSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Final answer for the user"},
		}, "text"),
		Handler: func(ctx context.Context, params json.RawMessage, browser output.BrowserPort) (entity.ActionResult, error) {
			var input struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(params, &input); err != nil {
				return entity.ActionResult{}, err
			}
			return entity.ActionResult{IsDone: true, ExtractedContent: input.Text}, nil
		},
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
