package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/similarity"
)

// contextFit scores how strongly each rhetorical role commits the text
// to its source. An argument leans on the citation; an example merely
// gestures at it.
var contextFit = map[model.RhetoricalContext]float64{
	model.ContextArgument:        0.9,
	model.ContextCounterargument: 0.85,
	model.ContextDefinition:      0.85,
	model.ContextExplanation:     0.8,
	model.ContextExample:         0.75,
}

// kindFit scores how checkable each citation kind is against a source.
var kindFit = map[model.CitationKind]float64{
	model.KindDirectQuote: 0.9,
	model.KindReference:   0.85,
	model.KindParaphrase:  0.8,
	model.KindAllusion:    0.65,
}

// checkTextualAccuracy verifies the cited text against the passages the
// context was composed from. Quotes must be found in a passage; other
// kinds pass when the cited document or work is present in the context.
func checkTextualAccuracy(cit *model.Citation, source *model.ContextResult) model.RuleResult {
	passages := contextPassages(source)
	if len(passages) == 0 {
		return model.RuleResult{Passed: false, Score: 0, Detail: "no source context to check against"}
	}

	if cit.Kind == model.KindDirectQuote {
		score := bestPassageScore(cit.Text, passages)
		return model.RuleResult{
			Passed: score >= 0.5,
			Score:  score,
			Detail: fmt.Sprintf("quote coverage %.2f against closest passage", score),
		}
	}

	if cit.DocumentID != "" {
		for _, p := range passages {
			if p.DocumentID == cit.DocumentID {
				return model.RuleResult{Passed: true, Score: 0.9, Detail: "cited document present in context"}
			}
		}
	}
	if workInContext(cit, passages) {
		return model.RuleResult{Passed: true, Score: 0.7, Detail: "cited work present in context"}
	}

	score := bestPassageScore(cit.Text, passages)
	return model.RuleResult{
		Passed: score >= 0.5,
		Score:  score,
		Detail: "cited work not found in context",
	}
}

// classicalLocator matches the work-and-section shape of a classical
// reference, e.g. "Republic 514a" or "Nicomachean Ethics 1094a1-1094b5".
var classicalLocator = regexp.MustCompile(`^[A-Z][a-z]+(?: [A-Z][a-z]+)* \d{1,4}[a-z]?\d*(?:\s*[-–]\s*\d{1,4}[a-z]?\d*)?$`)

// checkSourceAttribution verifies the citation names a source the context
// actually holds. Passes when author and work match a context passage, or
// when the locator follows the classical citation form; naming a source
// the context never saw is not attribution.
func checkSourceAttribution(cit *model.Citation, source *model.ContextResult) model.RuleResult {
	hasAuthor := cit.SourceAuthor != ""
	hasTitle := cit.SourceTitle != ""

	if hasAuthor && hasTitle && attributionInContext(cit, source) {
		return model.RuleResult{Passed: true, Score: 1.0, Detail: "attribution matches a context source"}
	}
	if classicalLocator.MatchString(strings.TrimSpace(cit.SourceReference)) {
		score := 0.85
		if hasAuthor && hasTitle {
			score = 1.0
		}
		return model.RuleResult{Passed: true, Score: score, Detail: "locator follows the classical citation form"}
	}

	switch {
	case hasAuthor && hasTitle:
		return model.RuleResult{Passed: false, Score: 0.6, Detail: "attributed source not found in context"}
	case hasAuthor || hasTitle:
		return model.RuleResult{Passed: false, Score: 0.4, Detail: "attribution names only part of its source"}
	default:
		return model.RuleResult{Passed: false, Score: 0, Detail: "citation lacks source attribution"}
	}
}

// attributionInContext reports whether the citation's author and work
// both match a passage the context was composed from.
func attributionInContext(cit *model.Citation, source *model.ContextResult) bool {
	author := similarity.Normalize(cit.SourceAuthor)
	title := strings.TrimPrefix(similarity.Normalize(cit.SourceTitle), "the ")
	for _, p := range contextPassages(source) {
		if similarity.Normalize(p.SourceAuthor) == author &&
			strings.TrimPrefix(similarity.Normalize(p.SourceTitle), "the ") == title {
			return true
		}
	}
	return false
}

// checkContextualRelevance scores whether the citation kind suits the
// rhetorical role it plays, discounted by extraction confidence.
func checkContextualRelevance(cit *model.Citation, _ *model.ContextResult) model.RuleResult {
	cf, ok := contextFit[cit.Context]
	if !ok {
		cf = contextFit[model.ContextExplanation]
	}
	kf, ok := kindFit[cit.Kind]
	if !ok {
		kf = kindFit[model.KindParaphrase]
	}

	score := cf * kf * model.Clamp01(cit.Confidence)
	return model.RuleResult{
		Passed: score >= 0.5,
		Score:  score,
		Detail: fmt.Sprintf("%s used as %s", cit.Kind, contextName(cit.Context)),
	}
}

// checkScholarlyFormat scores the citation's completeness as a scholarly
// reference: section locator, author, work, and a non-trivial span.
func checkScholarlyFormat(cit *model.Citation, _ *model.ContextResult) model.RuleResult {
	score := 0.0
	var missing []string

	if cit.SourceReference != "" {
		score += 0.4
	} else {
		missing = append(missing, "section reference")
	}
	if cit.SourceAuthor != "" {
		score += 0.2
	} else {
		missing = append(missing, "author")
	}
	if cit.SourceTitle != "" {
		score += 0.2
	} else {
		missing = append(missing, "work title")
	}
	if utf8.RuneCountInString(strings.TrimSpace(cit.Text)) >= 10 {
		score += 0.2
	} else {
		missing = append(missing, "cited span")
	}

	detail := "complete scholarly reference"
	if len(missing) > 0 {
		detail = "missing " + strings.Join(missing, ", ")
	}
	return model.RuleResult{Passed: score >= 0.7, Score: score, Detail: detail}
}

func contextPassages(source *model.ContextResult) []model.Passage {
	if source == nil {
		return nil
	}
	var passages []model.Passage
	for _, g := range source.Groups {
		passages = append(passages, g.Passages...)
	}
	return passages
}

// bestPassageScore finds the passage best covering the cited text.
// Exact containment scores 1.0.
func bestPassageScore(text string, passages []model.Passage) float64 {
	quote := similarity.Normalize(text)
	if quote == "" {
		return 0
	}
	best := 0.0
	for _, p := range passages {
		body := similarity.Normalize(p.Text)
		if body == "" {
			continue
		}
		if strings.Contains(body, quote) {
			return 1.0
		}
		if score := similarity.Coverage(quote, body); score > best {
			best = score
		}
	}
	return best
}

func workInContext(cit *model.Citation, passages []model.Passage) bool {
	title := strings.TrimPrefix(similarity.Normalize(cit.SourceTitle), "the ")
	author := similarity.Normalize(cit.SourceAuthor)
	for _, p := range passages {
		if title != "" && strings.TrimPrefix(similarity.Normalize(p.SourceTitle), "the ") == title {
			return true
		}
		if author != "" && similarity.Normalize(p.SourceAuthor) == author {
			return true
		}
	}
	return false
}

func contextName(c model.RhetoricalContext) string {
	if c == "" {
		return string(model.ContextExplanation)
	}
	return string(c)
}
