package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsageAdd(t *testing.T) {
	var total TokenUsage

	total.Add(TokenUsage{
		InputTokens:  100,
		OutputTokens: 20,
		TotalTokens:  120,
		InputDetails: TokenDetails{CacheRead: 40},
	})
	total.Add(TokenUsage{
		InputTokens:   50,
		OutputTokens:  10,
		TotalTokens:   60,
		InputDetails:  TokenDetails{CacheRead: 10, Audio: 5},
		OutputDetails: TokenDetails{Reasoning: 7},
	})

	assert.Equal(t, 150, total.InputTokens)
	assert.Equal(t, 30, total.OutputTokens)
	assert.Equal(t, 180, total.TotalTokens)
	assert.Equal(t, 50, total.InputDetails.CacheRead)
	assert.Equal(t, 5, total.InputDetails.Audio)
	assert.Equal(t, 7, total.OutputDetails.Reasoning)
}

func TestPricingCatalogCost(t *testing.T) {
	catalog := DefaultPricingCatalog()

	t.Run("uncached usage", func(t *testing.T) {
		cost, ok := catalog.Cost("gpt-4o", TokenUsage{
			InputTokens:  1_000_000,
			OutputTokens: 100_000,
		})
		require.True(t, ok)
		assert.InDelta(t, 2.50+1.00, cost, 1e-9)
	})

	t.Run("cached input is billed at the cached rate", func(t *testing.T) {
		cost, ok := catalog.Cost("gpt-4o", TokenUsage{
			InputTokens:  1_000_000,
			OutputTokens: 0,
			InputDetails: TokenDetails{CacheRead: 400_000},
		})
		require.True(t, ok)
		// 600k uncached at 2.50 + 400k cached at 1.25
		assert.InDelta(t, 0.6*2.50+0.4*1.25, cost, 1e-9)
	})

	t.Run("unknown model", func(t *testing.T) {
		cost, ok := catalog.Cost("some/experimental-model", TokenUsage{InputTokens: 1000})
		assert.False(t, ok)
		assert.Zero(t, cost)
	})

	t.Run("zero usage costs nothing", func(t *testing.T) {
		cost, ok := catalog.Cost("gpt-4o-mini", TokenUsage{})
		require.True(t, ok)
		assert.Zero(t, cost)
	})

	t.Run("cost of accumulated usage equals sum of per-step costs", func(t *testing.T) {
		steps := []TokenUsage{
			{InputTokens: 1200, OutputTokens: 80, InputDetails: TokenDetails{CacheRead: 200}},
			{InputTokens: 900, OutputTokens: 150},
			{InputTokens: 3000, OutputTokens: 40, InputDetails: TokenDetails{CacheRead: 2500}},
		}

		var total TokenUsage
		var sum float64
		for _, step := range steps {
			total.Add(step)
			cost, ok := catalog.Cost("claude-3-5-sonnet-20240620", step)
			require.True(t, ok)
			sum += cost
		}

		accumulated, ok := catalog.Cost("claude-3-5-sonnet-20240620", total)
		require.True(t, ok)
		assert.InDelta(t, sum, accumulated, 1e-9)
	})
}
