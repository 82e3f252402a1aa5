package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/scholiast/scholia/internal/model"
)

// Generator wraps a Provider with rate limiting and turns composed
// context into grounded answers. A nil provider disables generation.
type Generator struct {
	provider Provider
	limiter  *rate.Limiter
	config   model.LLMConfig
}

// NewGenerator creates a generator around the given provider.
func NewGenerator(provider Provider, config model.LLMConfig) *Generator {
	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &Generator{
		provider: provider,
		limiter:  limiter,
		config:   config,
	}
}

// Enabled reports whether a provider is configured.
func (g *Generator) Enabled() bool {
	return g.provider != nil
}

// Answer generates a grounded answer for the query from the composed
// context. Provider failures degrade to a warning rather than failing
// the pipeline; the returned answer is never nil.
func (g *Generator) Answer(ctx context.Context, query string, result *model.ContextResult) (*model.GeneratedAnswer, error) {
	if g.provider == nil {
		return &model.GeneratedAnswer{
			Warnings: []string{"answer generation disabled (no LLM provider configured)"},
		}, nil
	}

	if !g.provider.IsAvailable(ctx) {
		return &model.GeneratedAnswer{
			Provider: g.provider.Name(),
			Warnings: []string{fmt.Sprintf("provider %s not available (check configuration and connectivity)", g.provider.Name())},
		}, nil
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var citations []string
	if result != nil {
		for _, cc := range result.Citations {
			if cc.Formatted != "" {
				citations = append(citations, cc.Formatted)
			}
		}
	}

	contextText := ""
	if result != nil {
		contextText = result.Text
	}

	system, prompt := BuildPrompt(query, contextText, citations)

	resp, err := g.provider.Generate(ctx, GenerateRequest{
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		return &model.GeneratedAnswer{
			Provider: g.provider.Name(),
			Warnings: []string{fmt.Sprintf("answer generation failed: %v", err)},
		}, nil
	}

	return &model.GeneratedAnswer{
		Provider:   g.provider.Name(),
		Model:      resp.Model,
		Text:       resp.Text,
		TokensUsed: resp.TokensUsed,
	}, nil
}
