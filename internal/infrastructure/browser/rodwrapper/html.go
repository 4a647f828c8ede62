package rodwrapper

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

type CleanConfig struct {
	TagsToRemove  []string
	AttrsToRemove []string
	MaxOutputSize int
}

var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "title",
	},
	AttrsToRemove: []string{
		"style", "srcset", "sizes", "loading", "decoding", "fetchpriority", "tabindex",
	},
	MaxOutputSize: 130_000,
}

// CleanHTML strips scripts, styles, comments and presentation attributes from
// raw page HTML so the model sees structure instead of noise. On parse errors
// the raw input is returned unchanged.
func CleanHTML(rawHTML string, cfg *CleanConfig) string {
	if cfg == nil {
		cfg = &DefaultCleanConfig
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	body := findBody(doc)
	if body == nil {
		return rawHTML
	}

	cleanNode(body, cfg)

	var sb strings.Builder
	if err := html.Render(&sb, body); err != nil {
		return rawHTML
	}
	return truncateHTML(sb.String(), cfg.MaxOutputSize)
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

func cleanNode(n *html.Node, cfg *CleanConfig) {
	if n.Type == html.CommentNode {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	if slices.Contains(cfg.TagsToRemove, n.Data) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}

	n.Attr = filterAttributes(n.Attr, cfg)

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		cleanNode(c, cfg)
		c = next
	}
}

func filterAttributes(attrs []html.Attribute, cfg *CleanConfig) []html.Attribute {
	var kept []html.Attribute
	for _, attr := range attrs {
		if shouldRemoveAttr(attr, cfg) {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func shouldRemoveAttr(attr html.Attribute, cfg *CleanConfig) bool {
	if slices.Contains(cfg.AttrsToRemove, attr.Key) {
		return true
	}
	// data-*, aria-* and inline handlers only waste tokens.
	return strings.HasPrefix(attr.Key, "data-") ||
		strings.HasPrefix(attr.Key, "aria-") ||
		strings.HasPrefix(attr.Key, "on")
}

func truncateHTML(htmlStr string, maxSize int) string {
	if maxSize > 0 && len(htmlStr) > maxSize {
		return htmlStr[:maxSize] + "\n<!-- HTML truncated to fit token limit -->"
	}
	return htmlStr
}
