// Package tokens measures the token footprint of text against a model
// context budget. Two counters are available: a fast word-based estimate
// and an exact BPE count backed by tiktoken encodings.
package tokens

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter reports how many tokens a piece of text consumes and trims
// text to fit a budget.
type Counter interface {
	// Count returns the token count for text.
	Count(text string) int
	// Truncate returns a prefix of text that fits within maxTokens.
	// A budget of zero or less yields the empty string.
	Truncate(text string, maxTokens int) string
	// Name identifies the counting scheme.
	Name() string
}

// New builds a Counter for the named encoder. The name "estimate" (or
// empty) selects the word-based estimator with the given multiplier;
// any other name is resolved as a tiktoken encoding such as
// "cl100k_base".
func New(encoder string, multiplier float64) (Counter, error) {
	if encoder == "" || encoder == "estimate" {
		if multiplier <= 0 {
			return nil, fmt.Errorf("token multiplier must be positive, got %.2f", multiplier)
		}
		return &EstimateCounter{Multiplier: multiplier}, nil
	}
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoder, err)
	}
	return &TiktokenCounter{encoding: encoder, enc: enc}, nil
}

// EstimateCounter approximates token counts as word count times a fixed
// multiplier, truncating to an integer. English prose averages roughly
// 1.3 tokens per word under common BPE vocabularies.
type EstimateCounter struct {
	Multiplier float64
}

func (c *EstimateCounter) Count(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) * c.Multiplier)
}

func (c *EstimateCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	maxWords := int(float64(maxTokens) / c.Multiplier)
	if maxWords >= len(words) {
		return text
	}
	return strings.Join(words[:maxWords], " ")
}

func (c *EstimateCounter) Name() string {
	return "estimate"
}

// TiktokenCounter counts tokens with a real BPE encoding. Exact but
// slower than the estimator, and the encoding tables are fetched on
// first use.
type TiktokenCounter struct {
	encoding string
	enc      *tiktoken.Tiktoken
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *TiktokenCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	ids := c.enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return c.enc.Decode(ids[:maxTokens])
}

func (c *TiktokenCounter) Name() string {
	return c.encoding
}
