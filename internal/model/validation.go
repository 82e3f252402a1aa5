package model

import "time"

// Rule names used by the validator. Kept here so reports and configuration
// share one vocabulary.
const (
	RuleTextualAccuracy     = "textual_accuracy"
	RuleSourceAttribution   = "source_attribution"
	RuleContextualRelevance = "contextual_relevance"
	RuleScholarlyFormat     = "scholarly_format"
)

// RuleResult is the outcome of a single validation rule.
type RuleResult struct {
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"` // [0,1]
	Detail string  `json:"detail,omitempty"`
}

// ValidationResult is the per-citation validation outcome. Rule evaluation
// failures are captured here as data, never surfaced as errors.
type ValidationResult struct {
	CitationID string                `json:"citation_id"`
	IsValid    bool                  `json:"is_valid"`
	Confidence float64               `json:"confidence"` // Weight-normalized sum of rule scores
	Rules      map[string]RuleResult `json:"rules,omitempty"`

	SourceAccuracy   float64 `json:"source_accuracy"`
	AttributionScore float64 `json:"attribution_score"`
	ContextRelevance float64 `json:"context_relevance"`

	Issues      []string `json:"issues,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	ValidatedAt time.Time `json:"validated_at"`
}

// BatchValidationResult aggregates the validation of many citations.
// Results preserves input order and always carries one entry per input.
type BatchValidationResult struct {
	Results    []ValidationResult `json:"results"`
	AllValid   bool               `json:"all_valid"`
	ValidCount int                `json:"valid_count"`
	TotalCount int                `json:"total_count"`

	MeanConfidence float64 `json:"mean_confidence"`
	AccuracyScore  float64 `json:"accuracy_score"`  // Fraction valid with confidence >= 0.8
	CoverageScore  float64 `json:"coverage_score"`  // Fraction with source accuracy >= 0.7
	QualityScore   float64 `json:"quality_score"`   // Mean of confidence, source accuracy, context relevance
	Elapsed        float64 `json:"elapsed_seconds"` // Wall-clock batch duration
}

// ExtractionResult is what the extractor reports for one generated text.
// Extraction never fails the pipeline: a degraded run yields an empty
// citation list plus explanatory issues.
type ExtractionResult struct {
	Citations        []Citation `json:"citations"`
	TotalMatches     int        `json:"total_matches"`
	ValidatedMatches int        `json:"validated_matches"`
	AccuracyScore    float64    `json:"accuracy_score"` // Fraction of citations with confidence >= 0.8
	CoverageScore    float64    `json:"coverage_score"` // Fraction of context documents actually cited
	Issues           []string   `json:"issues,omitempty"`
	Warnings         []string   `json:"warnings,omitempty"`
}
