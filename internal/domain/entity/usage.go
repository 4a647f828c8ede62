package entity

// TokenDetails breaks a token counter down by provider-reported category.
// Absent provider fields stay zero.
type TokenDetails struct {
	Audio     int `json:"audio"`
	CacheRead int `json:"cache_read"`
	Reasoning int `json:"reasoning"`
}

func (d *TokenDetails) Add(delta TokenDetails) {
	d.Audio += delta.Audio
	d.CacheRead += delta.CacheRead
	d.Reasoning += delta.Reasoning
}

// TokenUsage accumulates token consumption over a run. Counters only grow;
// they are never reset within a run.
type TokenUsage struct {
	InputTokens   int          `json:"input_tokens"`
	OutputTokens  int          `json:"output_tokens"`
	TotalTokens   int          `json:"total_tokens"`
	InputDetails  TokenDetails `json:"input_token_details"`
	OutputDetails TokenDetails `json:"output_token_details"`
}

func (u *TokenUsage) Add(delta TokenUsage) {
	u.InputTokens += delta.InputTokens
	u.OutputTokens += delta.OutputTokens
	u.TotalTokens += delta.TotalTokens
	u.InputDetails.Add(delta.InputDetails)
	u.OutputDetails.Add(delta.OutputDetails)
}

// Pricing holds prices per 1M tokens.
type Pricing struct {
	UncachedInput float64
	CachedInput   float64
	Output        float64
}

// PricingCatalog maps a model name to its pricing.
type PricingCatalog map[string]Pricing

func DefaultPricingCatalog() PricingCatalog {
	return PricingCatalog{
		"gpt-4o":                     {UncachedInput: 2.50, CachedInput: 1.25, Output: 10.00},
		"gpt-4o-mini":                {UncachedInput: 0.15, CachedInput: 0.075, Output: 0.60},
		"claude-3-5-sonnet-20240620": {UncachedInput: 3.00, CachedInput: 1.50, Output: 15.00},
	}
}

// Cost derives the monetary cost of the accumulated usage for the given
// model. An unrecognized model yields (0, false); cost tracking is best-effort
// telemetry, never a correctness gate.
func (c PricingCatalog) Cost(model string, usage TokenUsage) (float64, bool) {
	pricing, ok := c[model]
	if !ok {
		return 0, false
	}
	const perMillion = 1e6
	uncachedInput := usage.InputTokens - usage.InputDetails.CacheRead
	cost := float64(uncachedInput)/perMillion*pricing.UncachedInput +
		float64(usage.InputDetails.CacheRead)/perMillion*pricing.CachedInput +
		float64(usage.OutputTokens)/perMillion*pricing.Output
	return cost, true
}
