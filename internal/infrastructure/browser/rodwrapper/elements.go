package rodwrapper

import (
	"strings"

	"browser-pilot/internal/domain/entity"

	"github.com/go-rod/rod"
)

type ExtractConfig struct {
	OnlyInViewport bool
	MaxElements    int
}

var DefaultExtractConfig = ExtractConfig{
	OnlyInViewport: true,
	MaxElements:    500,
}

// ExtractElements collects the visible interactive elements of a page and
// assigns them stable small-integer indices so the model can address elements
// without seeing raw selectors. The returned handle map resolves an index back
// to its live element for subsequent click/input calls. Indices are stable
// within one extraction only; a new observation produces a new numbering.
func ExtractElements(page *rod.Page, cfg *ExtractConfig) ([]entity.InteractiveElement, map[int]*rod.Element) {
	if cfg == nil {
		cfg = &DefaultExtractConfig
	}

	var result []entity.InteractiveElement
	handles := make(map[int]*rod.Element)
	seen := make(map[string]bool)

	add := func(el *rod.Element, typ string) {
		if el == nil || len(result) >= cfg.MaxElements {
			return
		}

		visible, err := el.Visible()
		if err != nil || !visible {
			return
		}

		if cfg.OnlyInViewport && !inViewport(el) {
			return
		}

		selector := xpathOf(el)
		if selector == "" || seen[selector] {
			return
		}
		seen[selector] = true

		text, _ := el.Text()
		text = strings.TrimSpace(text)
		aria, _ := el.Attribute("aria-label")
		title, _ := el.Attribute("title")

		index := len(result)
		handles[index] = el
		result = append(result, entity.InteractiveElement{
			Index:    index,
			Type:     typ,
			Text:     text,
			Label:    firstNonEmpty(deref(aria), deref(title), text),
			Selector: selector,
		})
	}

	collect := func(query, typ string) {
		elements, err := page.Elements(query)
		if err != nil {
			return
		}
		for _, el := range elements {
			add(el, typ)
		}
	}

	collect("button, [role='button'], [data-tooltip], [aria-label]:not([aria-label=''])", "button")
	collect("input, textarea, select", "input")
	collect("input[type='checkbox'], [role='checkbox']", "checkbox")
	collect("a", "link")

	return result, handles
}

func inViewport(el *rod.Element) bool {
	res, err := el.Eval(`() => {
		const rect = this.getBoundingClientRect();
		return rect.top < window.innerHeight && rect.bottom >= 0 &&
			rect.left < window.innerWidth && rect.right >= 0;
	}`)
	if err != nil {
		return true
	}
	return res.Value.Bool()
}

func xpathOf(el *rod.Element) string {
	xpath, err := el.GetXPath(true)
	if err != nil {
		return ""
	}
	return xpath
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func deref(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}
