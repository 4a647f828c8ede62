package entity

import (
	"fmt"
	"strings"
)

// HistoryRecord is one step of a run. Decision is nil when the step failed
// before a decision was obtained.
type HistoryRecord struct {
	Decision *AgentDecision `json:"decision,omitempty"`
	Result   ActionResult   `json:"result"`
	Snapshot *Snapshot      `json:"snapshot,omitempty"`
}

// HistoryLog is the append-only, time-ordered audit trail of a run. Records
// are never removed or reordered; insertion order is execution order.
type HistoryLog struct {
	records []HistoryRecord
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

func (l *HistoryLog) Append(record HistoryRecord) {
	l.records = append(l.records, record)
}

func (l *HistoryLog) Len() int {
	return len(l.records)
}

// Records returns a copy; the log itself stays append-only.
func (l *HistoryLog) Records() []HistoryRecord {
	out := make([]HistoryRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *HistoryLog) Last() (HistoryRecord, bool) {
	if len(l.records) == 0 {
		return HistoryRecord{}, false
	}
	return l.records[len(l.records)-1], true
}

// IsDone reports whether the latest record signalled task completion.
func (l *HistoryLog) IsDone() bool {
	last, ok := l.Last()
	return ok && last.Result.IsDone
}

const mermaidLabelLimit = 80

// Mermaid renders the run as a directed graph: node i holds the summarized
// result of step i, edges encode strict step order.
func (l *HistoryLog) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	for i, record := range l.records {
		content := record.Result.ExtractedContent
		if content == "" {
			content = record.Result.Error
		}
		if content == "" {
			content = "No content"
		}
		fmt.Fprintf(&b, "    step%d['%s']\n", i, mermaidLabel(content))
		if i > 0 {
			fmt.Fprintf(&b, "    step%d --> step%d\n", i-1, i)
		}
	}
	return b.String()
}

func mermaidLabel(s string) string {
	s = strings.NewReplacer("\n", " ", "\r", " ", "'", "", "[", "(", "]", ")").Replace(s)
	if len(s) > mermaidLabelLimit {
		s = s[:mermaidLabelLimit] + "..."
	}
	return s
}
