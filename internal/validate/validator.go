package validate

import (
	"fmt"
	"time"

	"github.com/scholiast/scholia/internal/model"
)

// ruleFunc evaluates one rule against a citation and its source context.
type ruleFunc func(*model.Citation, *model.ContextResult) model.RuleResult

// ruleOrder fixes rule evaluation and reporting order.
var ruleOrder = []struct {
	name string
	fn   ruleFunc
}{
	{model.RuleTextualAccuracy, checkTextualAccuracy},
	{model.RuleSourceAttribution, checkSourceAttribution},
	{model.RuleContextualRelevance, checkContextualRelevance},
	{model.RuleScholarlyFormat, checkScholarlyFormat},
}

// Validator checks extracted citations against the configured rules.
type Validator struct {
	cfg model.ValidatorConfig
}

// NewValidator creates a validator with the given configuration.
func NewValidator(cfg model.ValidatorConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateCitation runs every enabled rule against one citation. Rules
// are pure checks over the citation and its source context; problems
// surface as issues on the result, never as errors. Two calls with the
// same inputs produce the same verdict.
func (v *Validator) ValidateCitation(cit *model.Citation, source *model.ContextResult) model.ValidationResult {
	result := model.ValidationResult{
		CitationID:  cit.ID,
		Rules:       make(map[string]model.RuleResult, len(ruleOrder)),
		ValidatedAt: time.Now().UTC(),
	}

	weightSum := 0.0
	scoreSum := 0.0
	requiredFailed := false

	for _, entry := range ruleOrder {
		rc, ok := v.cfg.Rules[entry.name]
		if !ok || !rc.Enabled {
			continue
		}
		rr := entry.fn(cit, source)
		result.Rules[entry.name] = rr

		weightSum += rc.Weight
		scoreSum += rc.Weight * rr.Score

		if v.ruleRequired(entry.name, rc) && !rr.Passed {
			requiredFailed = true
			result.Issues = append(result.Issues, fmt.Sprintf("required rule %s failed: %s", entry.name, rr.Detail))
		}
	}

	if weightSum > 0 {
		result.Confidence = model.Clamp01(scoreSum / weightSum)
	}
	result.SourceAccuracy = result.Rules[model.RuleTextualAccuracy].Score
	result.AttributionScore = result.Rules[model.RuleSourceAttribution].Score
	result.ContextRelevance = result.Rules[model.RuleContextualRelevance].Score

	result.IsValid = !requiredFailed && result.Confidence >= v.cfg.AccuracyThreshold
	if !requiredFailed && !result.IsValid {
		result.Issues = append(result.Issues, fmt.Sprintf("confidence %.2f below threshold %.2f", result.Confidence, v.cfg.AccuracyThreshold))
	}

	if rr, ok := result.Rules[model.RuleSourceAttribution]; ok && rr.Passed && rr.Score < 1.0 {
		result.Warnings = append(result.Warnings, "attribution is partial")
	}

	v.addSuggestions(cit, &result)
	return result
}

// ruleRequired reports whether a failed rule invalidates the citation.
// Strict attribution promotes the attribution rule to required.
func (v *Validator) ruleRequired(name string, rc model.RuleConfig) bool {
	if name == model.RuleSourceAttribution && v.cfg.StrictAttribution {
		return true
	}
	return rc.Required
}

// addSuggestions proposes concrete fixes for citations that failed or
// barely passed.
func (v *Validator) addSuggestions(cit *model.Citation, result *model.ValidationResult) {
	if result.IsValid && result.Confidence >= v.cfg.SuggestionThreshold {
		return
	}
	if cit.SourceAuthor == "" {
		result.Suggestions = append(result.Suggestions, "name the author in the attribution")
	}
	if cit.SourceTitle == "" {
		result.Suggestions = append(result.Suggestions, "name the work being cited")
	}
	if cit.SourceReference == "" {
		result.Suggestions = append(result.Suggestions, "add a section reference such as a Stephanus or Bekker number")
	}
	if rr, ok := result.Rules[model.RuleTextualAccuracy]; ok && !rr.Passed {
		result.Suggestions = append(result.Suggestions, "quote or paraphrase the source passage more closely")
	}
}
