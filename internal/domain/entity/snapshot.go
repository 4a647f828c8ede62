package entity

// TabInfo describes one open browser tab.
type TabInfo struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// InteractiveElement is one actionable element on the page. The model refers
// to elements by Index; the Selector stays adapter-internal and is never sent
// to the model.
type InteractiveElement struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Label    string `json:"label,omitempty"`
	Selector string `json:"-"`
}

// Snapshot is an immutable observation of the browser at the start of a step.
// It is created once per step by the browser adapter and never mutated after.
type Snapshot struct {
	Content      string               `json:"content"`
	Elements     []InteractiveElement `json:"elements,omitempty"`
	URL          string               `json:"url"`
	PreviousURL  string               `json:"previous_url,omitempty"`
	Title        string               `json:"title"`
	CurrentTabID string               `json:"current_tab_id"`
	Tabs         []TabInfo            `json:"tabs,omitempty"`
	Screenshot   string               `json:"screenshot,omitempty"`
}
