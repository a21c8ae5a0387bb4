// Package tokens provides token estimation and cumulative budget tracking
// for trajectory execution. The heuristic is calibrated for frontier-model
// tokenizers (~4 characters per token); exact counts come from provider
// usage metadata when available and the estimate fills the gaps.
package tokens

import "unicode/utf8"

// Counter estimates token counts from text.
type Counter struct {
	// Calibration factor (characters per token)
	charsPerToken float64
}

// NewCounter creates a counter with default calibration.
func NewCounter() *Counter {
	return &Counter{charsPerToken: 4.0}
}

// Count estimates tokens in a string.
func (c *Counter) Count(s string) int {
	if s == "" {
		return 0
	}
	// Rune count for proper unicode handling
	runes := utf8.RuneCountInString(s)
	n := int(float64(runes) / c.charsPerToken)
	if n == 0 {
		n = 1 // non-empty text is never free
	}
	return n
}

// CountAll estimates tokens across several strings.
func (c *Counter) CountAll(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += c.Count(p)
	}
	return total
}

// Budget tracks cumulative input/output token usage against a hard ceiling.
// The zero value is unusable; construct with NewBudget.
type Budget struct {
	limit  int
	input  int
	output int
}

// WarningRatio is the fraction of the budget at which Warning reports true.
const WarningRatio = 0.8

// NewBudget creates a budget with the given ceiling.
func NewBudget(limit int) *Budget {
	return &Budget{limit: limit}
}

// Add records input and output token usage.
func (b *Budget) Add(input, output int) {
	b.input += input
	b.output += output
}

// Total returns cumulative input+output usage.
func (b *Budget) Total() int {
	return b.input + b.output
}

// Input returns cumulative input usage.
func (b *Budget) Input() int { return b.input }

// Output returns cumulative output usage.
func (b *Budget) Output() int { return b.output }

// Limit returns the ceiling.
func (b *Budget) Limit() int { return b.limit }

// Remaining returns tokens left before the ceiling, never negative.
func (b *Budget) Remaining() int {
	r := b.limit - b.Total()
	if r < 0 {
		return 0
	}
	return r
}

// Warning reports whether usage has crossed WarningRatio of the ceiling.
func (b *Budget) Warning() bool {
	return float64(b.Total()) >= float64(b.limit)*WarningRatio
}

// Exceeded reports whether usage has reached or passed the ceiling.
func (b *Budget) Exceeded() bool {
	return b.Total() >= b.limit
}
