package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is implemented by each answer-generation backend.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate produces an answer for a grounded generation request
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest is the input for one grounded generation call.
type GenerateRequest struct {
	// System is the system prompt establishing the grounding rules
	System string

	// Prompt is the user prompt: query, source passages, citations
	Prompt string

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature steers sampling; zero means use the configured value
	Temperature float64
}

// GenerateResponse is the provider's answer.
type GenerateResponse struct {
	// Text is the generated answer
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// systemPrompt establishes the grounding rules every provider receives.
const systemPrompt = `You are a scholarly assistant answering questions strictly from the source passages provided. Cite every claim in classical style: author, work, and section where available, e.g. (Plato, Republic 514a). If the passages do not answer the question, say so plainly. Never invent sources, quotations, or section numbers.`

// BuildPrompt constructs the system and user prompts for grounded
// answer generation. The citation list is the set of references the
// model is allowed to use.
func BuildPrompt(query, contextText string, citations []string) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Source passages:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nAvailable citations:")
	b.WriteString(joinCitations(citations))
	b.WriteString("\n\nAnswer the question from these passages alone, citing the source of each claim.")

	return systemPrompt, b.String()
}

func joinCitations(citations []string) string {
	if len(citations) == 0 {
		return "\n(none -- answer without citations and say the sources are unattributed)"
	}
	var b strings.Builder
	for i, c := range citations {
		if i >= 20 { // Limit to avoid token bloat
			fmt.Fprintf(&b, "\n... and %d more", len(citations)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", c)
	}
	return b.String()
}
