package rod

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/domain/entity"
	"browser-pilot/internal/infrastructure/browser/rodwrapper"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

// BrowserAdapter drives a real Chromium instance through rod. One adapter is
// exclusively owned by one agent run.
type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page

	timeout     time.Duration
	settleDelay time.Duration

	// index -> live element handle from the last Observe.
	elements map[int]*rod.Element
	prevURL  string

	closeOnce sync.Once
}

type BrowserConfig struct {
	Headless    bool
	SlowMotion  time.Duration
	Timeout     time.Duration
	SettleDelay time.Duration
	NoSandbox   bool
	DevTools    bool
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:    false,
		SlowMotion:  500 * time.Millisecond,
		Timeout:     10 * time.Second,
		SettleDelay: 300 * time.Millisecond,
		NoSandbox:   true,
		DevTools:    false,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain").
		Set("disable-web-security").
		Set("allow-running-insecure-content").
		Set("disable-setuid-sandbox")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(url).
		SlowMotion(cfg.SlowMotion).
		MustConnect()

	page := browser.MustPage("about:blank")

	return &BrowserAdapter{
		browser:     browser,
		launcher:    l,
		page:        page,
		timeout:     cfg.Timeout,
		settleDelay: cfg.SettleDelay,
		elements:    make(map[int]*rod.Element),
	}, nil
}

// Observe waits for the page to settle (bounded; errors are ignored and the
// snapshot is built best-effort) and captures an immutable snapshot. The
// element handle map is replaced atomically with the new numbering.
func (b *BrowserAdapter) Observe(ctx context.Context, captureVisual bool) (*entity.Snapshot, error) {
	b.settle()

	info, err := b.page.Info()
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}

	content := ""
	if body, err := b.page.Timeout(b.timeout).Element("body"); err == nil {
		if raw, err := body.HTML(); err == nil {
			content = rodwrapper.CleanHTML(raw, nil)
		}
	}

	elements, handles := rodwrapper.ExtractElements(b.page, nil)
	b.elements = handles

	snapshot := &entity.Snapshot{
		Content:      content,
		Elements:     elements,
		URL:          info.URL,
		PreviousURL:  b.prevURL,
		Title:        info.Title,
		CurrentTabID: string(b.page.TargetID),
		Tabs:         b.tabs(),
	}

	if captureVisual {
		if shot, err := b.screenshot(); err == nil {
			snapshot.Screenshot = shot
		}
	}

	b.prevURL = info.URL
	return snapshot, nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, url string) error {
	if err := b.page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	b.settle()
	return nil
}

func (b *BrowserAdapter) Click(ctx context.Context, index, clicks int) error {
	el, err := b.element(index)
	if err != nil {
		return err
	}
	if clicks <= 0 {
		clicks = 1
	}
	if err := el.Click(proto.InputMouseButtonLeft, clicks); err != nil {
		return fmt.Errorf("click failed on element %d: %w", index, err)
	}
	b.page.WaitIdle(2 * time.Second)
	return nil
}

func (b *BrowserAdapter) Input(ctx context.Context, index int, text string) error {
	el, err := b.element(index)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input failed on element %d: %w", index, err)
	}
	return nil
}

func (b *BrowserAdapter) OpenTab(ctx context.Context, url string) error {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("failed to open tab: %w", err)
	}
	b.page = page
	b.elements = make(map[int]*rod.Element)
	b.settle()
	return nil
}

func (b *BrowserAdapter) SwitchTab(ctx context.Context, tabID string) error {
	pages, err := b.browser.Pages()
	if err != nil {
		return fmt.Errorf("failed to list tabs: %w", err)
	}
	for _, page := range pages {
		if string(page.TargetID) == tabID {
			if _, err := page.Activate(); err != nil {
				return fmt.Errorf("failed to activate tab %s: %w", tabID, err)
			}
			b.page = page
			b.elements = make(map[int]*rod.Element)
			return nil
		}
	}
	return fmt.Errorf("no tab with id %s", tabID)
}

func (b *BrowserAdapter) ExtractContent(ctx context.Context, format string) (string, error) {
	body, err := b.page.Timeout(b.timeout).Element("body")
	if err != nil {
		return "", fmt.Errorf("body not found: %w", err)
	}

	switch format {
	case "html":
		raw, err := body.HTML()
		if err != nil {
			return "", fmt.Errorf("failed to get HTML: %w", err)
		}
		return rodwrapper.CleanHTML(raw, nil), nil
	case "text", "markdown", "":
		text, err := body.Text()
		if err != nil {
			return "", fmt.Errorf("failed to get text: %w", err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("unknown content format: %s", format)
	}
}

func (b *BrowserAdapter) Scroll(ctx context.Context, amount int) error {
	if amount <= 0 {
		_, err := b.page.Eval(`() => window.scrollBy(0, window.innerHeight)`)
		if err != nil {
			return fmt.Errorf("scroll failed: %w", err)
		}
	} else {
		_, err := b.page.Eval(`(px) => window.scrollBy(0, px)`, amount)
		if err != nil {
			return fmt.Errorf("scroll failed: %w", err)
		}
	}
	b.page.WaitIdle(800 * time.Millisecond)
	return nil
}

func (b *BrowserAdapter) CurrentURL() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close is idempotent and kills the launched Chromium process.
func (b *BrowserAdapter) Close() error {
	b.closeOnce.Do(func() {
		if b.browser != nil {
			_ = b.browser.Close()
		}
		if b.launcher != nil {
			b.launcher.Kill()
			b.launcher.Cleanup()
		}
	})
	return nil
}

func (b *BrowserAdapter) element(index int) (*rod.Element, error) {
	el, ok := b.elements[index]
	if !ok {
		return nil, fmt.Errorf("no element with index %d in the last observation", index)
	}
	return el, nil
}

func (b *BrowserAdapter) settle() {
	page := b.page.Timeout(b.timeout)
	_ = page.WaitLoad()
	page.WaitIdle(b.timeout)
	if b.settleDelay > 0 {
		time.Sleep(b.settleDelay)
	}
}

func (b *BrowserAdapter) tabs() []entity.TabInfo {
	pages, err := b.browser.Pages()
	if err != nil {
		return nil
	}
	tabs := make([]entity.TabInfo, 0, len(pages))
	for _, page := range pages {
		info, err := page.Info()
		if err != nil {
			continue
		}
		tabs = append(tabs, entity.TabInfo{
			ID:    string(page.TargetID),
			URL:   info.URL,
			Title: info.Title,
		})
	}
	return tabs
}

const maxScreenshotWidth = 1024

func (b *BrowserAdapter) screenshot() (string, error) {
	imgBytes, err := b.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return "", fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > maxScreenshotWidth {
		img = imaging.Resize(img, maxScreenshotWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return "", fmt.Errorf("jpeg encode failed: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
