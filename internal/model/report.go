package model

import "time"

// Report is the complete output of one pipeline run for a query.
type Report struct {
	Query       string    `json:"query"`
	ProcessedAt time.Time `json:"processed_at"`
	Strategy    Strategy  `json:"strategy"`

	Context ContextSummary `json:"context"`

	Answer *GeneratedAnswer `json:"answer,omitempty"`

	Citations  []Citation             `json:"citations"`
	Extraction ExtractionSummary      `json:"extraction"`
	Validation *BatchValidationResult `json:"validation,omitempty"`
	Network    *CitationNetwork       `json:"network,omitempty"`

	// Attribution is the rendered source list handed to the response
	// assembler, one formatted citation per line.
	Attribution string `json:"attribution,omitempty"`
}

// ContextSummary condenses the composition outcome for the report. The full
// ContextResult (composed text included) is not persisted in the report to
// keep it small; callers that need the blob hold the ContextResult itself.
type ContextSummary struct {
	TotalTokens   int  `json:"total_tokens"`
	Truncated     bool `json:"truncated"`
	PassageCount  int  `json:"passage_count"`
	GroupCount    int  `json:"group_count"`
	DocumentCount int  `json:"document_count"`
	CitationCount int  `json:"citation_count"`
}

// SummarizeContext builds a ContextSummary from a composition result.
func SummarizeContext(r *ContextResult) ContextSummary {
	if r == nil {
		return ContextSummary{}
	}
	passages := 0
	for _, g := range r.Groups {
		passages += len(g.Passages)
	}
	return ContextSummary{
		TotalTokens:   r.TotalTokens,
		Truncated:     r.Truncated,
		PassageCount:  passages,
		GroupCount:    len(r.Groups),
		DocumentCount: len(r.DocumentIDs()),
		CitationCount: len(r.Citations),
	}
}

// ExtractionSummary condenses the extraction outcome for the report.
type ExtractionSummary struct {
	TotalMatches     int      `json:"total_matches"`
	ValidatedMatches int      `json:"validated_matches"`
	AccuracyScore    float64  `json:"accuracy_score"`
	CoverageScore    float64  `json:"coverage_score"`
	Issues           []string `json:"issues,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// SummarizeExtraction builds an ExtractionSummary from an extraction result.
func SummarizeExtraction(r *ExtractionResult) ExtractionSummary {
	if r == nil {
		return ExtractionSummary{}
	}
	return ExtractionSummary{
		TotalMatches:     r.TotalMatches,
		ValidatedMatches: r.ValidatedMatches,
		AccuracyScore:    r.AccuracyScore,
		CoverageScore:    r.CoverageScore,
		Issues:           r.Issues,
		Warnings:         r.Warnings,
	}
}

// GeneratedAnswer carries the text-generator output plus generation
// metadata. Warnings record degraded generation (provider unavailable,
// API failure) without failing the pipeline.
type GeneratedAnswer struct {
	Provider   string   `json:"provider,omitempty"`
	Model      string   `json:"model,omitempty"`
	Text       string   `json:"text,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}
