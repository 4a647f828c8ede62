package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLog(t *testing.T) {
	t.Run("empty log", func(t *testing.T) {
		log := NewHistoryLog()
		assert.Equal(t, 0, log.Len())
		assert.False(t, log.IsDone())

		_, ok := log.Last()
		assert.False(t, ok)
	})

	t.Run("append preserves order", func(t *testing.T) {
		log := NewHistoryLog()
		log.Append(HistoryRecord{Result: ActionResult{ExtractedContent: "first"}})
		log.Append(HistoryRecord{Result: ActionResult{Error: "second failed"}})
		log.Append(HistoryRecord{Result: ActionResult{ExtractedContent: "third"}})

		require.Equal(t, 3, log.Len())
		records := log.Records()
		assert.Equal(t, "first", records[0].Result.ExtractedContent)
		assert.Equal(t, "second failed", records[1].Result.Error)
		assert.Equal(t, "third", records[2].Result.ExtractedContent)

		last, ok := log.Last()
		require.True(t, ok)
		assert.Equal(t, "third", last.Result.ExtractedContent)
	})

	t.Run("records returns a copy", func(t *testing.T) {
		log := NewHistoryLog()
		log.Append(HistoryRecord{Result: ActionResult{ExtractedContent: "original"}})

		records := log.Records()
		records[0].Result.ExtractedContent = "mutated"

		fresh := log.Records()
		assert.Equal(t, "original", fresh[0].Result.ExtractedContent)
	})

	t.Run("is done follows the latest record", func(t *testing.T) {
		log := NewHistoryLog()
		log.Append(HistoryRecord{Result: ActionResult{IsDone: true, ExtractedContent: "answer"}})
		assert.True(t, log.IsDone())

		log.Append(HistoryRecord{Result: ActionResult{Error: "late failure"}})
		assert.False(t, log.IsDone())
	})
}

func TestHistoryLogMermaid(t *testing.T) {
	t.Run("empty log renders header only", func(t *testing.T) {
		log := NewHistoryLog()
		assert.Equal(t, "graph TD\n", log.Mermaid())
	})

	t.Run("edges follow step order", func(t *testing.T) {
		log := NewHistoryLog()
		log.Append(HistoryRecord{Result: ActionResult{ExtractedContent: "opened page"}})
		log.Append(HistoryRecord{Result: ActionResult{Error: "click failed"}})
		log.Append(HistoryRecord{Result: ActionResult{}})

		diagram := log.Mermaid()
		assert.True(t, strings.HasPrefix(diagram, "graph TD\n"))
		assert.Contains(t, diagram, "step0['opened page']")
		assert.Contains(t, diagram, "step1['click failed']")
		assert.Contains(t, diagram, "step2['No content']")
		assert.Contains(t, diagram, "step0 --> step1")
		assert.Contains(t, diagram, "step1 --> step2")
		assert.NotContains(t, diagram, "step2 --> ")
	})

	t.Run("labels are sanitized and truncated", func(t *testing.T) {
		log := NewHistoryLog()
		log.Append(HistoryRecord{Result: ActionResult{
			ExtractedContent: "line one\nwith 'quotes' and [brackets] " + strings.Repeat("x", 100),
		}})

		diagram := log.Mermaid()
		assert.NotContains(t, diagram, "\nwith")
		assert.NotContains(t, diagram, "'quotes'")
		assert.Contains(t, diagram, "(brackets)")
		assert.Contains(t, diagram, "...")
	})
}
