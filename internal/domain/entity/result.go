package entity

// ActionResult is the uniform outcome of executing one action. IsDone is the
// sole success-termination signal; a non-empty Error marks the action failed
// regardless of IsDone.
type ActionResult struct {
	IsDone           bool   `json:"is_done,omitempty"`
	ExtractedContent string `json:"extracted_content,omitempty"`
	Error            string `json:"error,omitempty"`
}
