package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scholiast/scholia/internal/corpus"
	"github.com/scholiast/scholia/internal/model"
)

// span is a raw pattern match before overlap resolution.
type span struct {
	start      int
	end        int
	text       string
	kind       model.CitationKind
	confidence float64
	author     string
	work       string
	locator    string
}

// Extractor finds citations in generated text and matches them back to
// the source context they were generated from.
type Extractor struct {
	cfg model.ExtractorConfig
}

// NewExtractor creates an extractor with the given configuration.
func NewExtractor(cfg model.ExtractorConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract scans generated text for citations. It never fails: pattern
// or matching errors degrade into an empty result with issues attached,
// so the pipeline can continue without citations.
func (e *Extractor) Extract(ctx context.Context, text string, source *model.ContextResult) (result *model.ExtractionResult) {
	result = &model.ExtractionResult{}

	defer func() {
		if r := recover(); r != nil {
			result.Citations = nil
			result.Issues = append(result.Issues, fmt.Sprintf("extraction failed: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Issues = append(result.Issues, fmt.Sprintf("extraction canceled: %v", err))
		return result
	}
	if strings.TrimSpace(text) == "" {
		result.Warnings = append(result.Warnings, "no text to extract citations from")
		return result
	}

	spans := findSpans(text)
	result.TotalMatches = len(spans)

	resolved := resolveOverlaps(spans)
	if discarded := len(spans) - len(resolved); discarded > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("discarded %d overlapping citation span(s)", discarded))
	}

	citations := make([]model.Citation, 0, len(resolved))
	for _, s := range resolved {
		citations = append(citations, e.buildCitation(text, s))
	}

	matched := matchSources(citations, source, e.cfg.SimilarityThreshold)
	result.ValidatedMatches = matched

	// With source material available, a citation that matches none of it
	// cannot be attributed and is dropped rather than passed downstream.
	if source != nil && len(sourcePassages(source)) > 0 {
		var unsourced int
		citations, unsourced = dropUnmatched(citations)
		if unsourced > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("discarded %d citation(s) with no matching source", unsourced))
		}
	}

	citations, dropped := e.filterConfidence(citations)
	if dropped > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("dropped %d citation(s) below confidence %.2f", dropped, e.cfg.MinConfidence))
	}
	citations = e.capCitations(citations)

	result.Citations = citations
	result.AccuracyScore = accuracyScore(citations)
	result.CoverageScore = coverageScore(citations, source)
	result.Issues = append(result.Issues, qualityIssues(citations, result.AccuracyScore, result.CoverageScore, source)...)
	result.Warnings = append(result.Warnings, qualityWarnings(text, citations)...)

	return result
}

// findSpans runs every detection pattern over the text and collects
// raw spans with their confidence priors. Attribution phrases that only
// introduce a quote are folded into the quote span instead of standing
// alone.
func findSpans(text string) []span {
	var spans []span

	var quoteStarts []int
	for _, m := range quotePattern.FindAllStringSubmatchIndex(text, -1) {
		quoteStarts = append(quoteStarts, m[0])
		spans = append(spans, span{
			start:      m[0],
			end:        m[1],
			text:       text[m[2]:m[3]],
			kind:       model.KindDirectQuote,
			confidence: quotePrior,
			author:     attributedAuthor(text, m[0]),
		})
	}

	for _, m := range classicalRefPattern.FindAllStringSubmatchIndex(text, -1) {
		work := text[m[2]:m[3]]
		section := text[m[4]:m[5]]
		s := span{
			start:      m[0],
			end:        m[1],
			text:       text[m[0]:m[1]],
			kind:       model.KindReference,
			confidence: classicalPrior,
			work:       work,
			locator:    work + " " + section,
		}
		// "Plato, Republic 514a" names the author just before the work.
		if am := authorBeforePattern.FindStringSubmatch(text[:m[0]]); am != nil {
			s.author = am[1]
		}
		spans = append(spans, s)
	}

	workStarts := make(map[int]bool)
	for _, m := range authorWorkPattern.FindAllStringSubmatchIndex(text, -1) {
		workStarts[m[0]] = true
		if attributionPrefix(m[1], quoteStarts) {
			continue
		}
		spans = append(spans, span{
			start:      m[0],
			end:        m[1],
			text:       text[m[0]:m[1]],
			kind:       model.KindParaphrase,
			confidence: authorWorkPrior,
			author:     text[m[2]:m[3]],
			work:       text[m[4]:m[5]],
		})
	}

	for _, m := range possessiveWorkPattern.FindAllStringSubmatchIndex(text, -1) {
		work := text[m[4]:m[5]]
		if _, known := corpus.KnownAuthor(work); !known && !looksLikeTitle(work) {
			continue
		}
		spans = append(spans, span{
			start:      m[0],
			end:        m[1],
			text:       text[m[0]:m[1]],
			kind:       model.KindParaphrase,
			confidence: authorWorkPrior,
			author:     text[m[2]:m[3]],
			work:       work,
		})
	}

	for _, m := range authorOnlyPattern.FindAllStringSubmatchIndex(text, -1) {
		if workStarts[m[0]] || attributionPrefix(m[1], quoteStarts) {
			continue
		}
		spans = append(spans, span{
			start:      m[0],
			end:        m[1],
			text:       text[m[0]:m[1]],
			kind:       model.KindParaphrase,
			confidence: authorWorkPrior - 0.05,
			author:     text[m[2]:m[3]],
		})
	}

	for _, m := range allusionPattern.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, span{
			start:      m[0],
			end:        m[1],
			text:       text[m[0]:m[1]],
			kind:       model.KindAllusion,
			confidence: allusionPrior,
			author:     text[m[2]:m[3]],
		})
	}

	return spans
}

// attributionPrefix reports whether a span ending at end introduces a
// quote that opens within a few characters, as in `As Seneca writes, "..."`.
func attributionPrefix(end int, quoteStarts []int) bool {
	for _, qs := range quoteStarts {
		if end <= qs && qs-end <= 3 {
			return true
		}
	}
	return false
}

// looksLikeTitle reports whether a possessive object reads like a work
// title rather than an ordinary capitalized noun. Multi-word spans are
// accepted; single words only when the corpus knows them.
func looksLikeTitle(work string) bool {
	return strings.Contains(work, " ")
}

// attributedAuthor looks for an attribution phrase shortly before a
// quote, as in `As Seneca writes, "..."`.
func attributedAuthor(text string, quoteStart int) string {
	windowStart := quoteStart - 80
	if windowStart < 0 {
		windowStart = 0
	}
	window := text[windowStart:quoteStart]
	if m := authorOnlyPattern.FindStringSubmatch(window); m != nil {
		return m[1]
	}
	if m := authorWorkPattern.FindStringSubmatch(window); m != nil {
		return m[1]
	}
	return ""
}

// resolveOverlaps keeps the highest-confidence span for each region of
// text. Ties go to the earlier span.
func resolveOverlaps(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	ordered := make([]span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].confidence != ordered[j].confidence {
			return ordered[i].confidence > ordered[j].confidence
		}
		return ordered[i].start < ordered[j].start
	})

	var kept []span
	for _, s := range ordered {
		overlaps := false
		for _, k := range kept {
			if s.start < k.end && k.start < s.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

// buildCitation converts a resolved span into a citation, backfilling
// the author from the known-works table when the text names only the
// work.
func (e *Extractor) buildCitation(text string, s span) model.Citation {
	author := s.author
	if author == "" && s.work != "" {
		if known, ok := corpus.KnownAuthor(s.work); ok {
			author = known
		}
	}

	start := s.start
	end := s.end
	cit := model.Citation{
		ID:              uuid.NewString(),
		Text:            s.text,
		Kind:            s.kind,
		SourceAuthor:    author,
		SourceTitle:     s.work,
		SourceReference: s.locator,
		StartOffset:     &start,
		EndOffset:       &end,
		Confidence:      model.Clamp01(s.confidence),
		Context:         classifyContext(text, s.start),
		CreatedAt:       time.Now().UTC(),
	}
	// An attributed quote is a stronger signal than a bare one.
	if s.kind == model.KindDirectQuote && author != "" {
		cit.Confidence = model.Clamp01(cit.Confidence + 0.1)
	}
	return cit
}

// dropUnmatched removes citations that were not tied to any source
// document. Only called when source passages were available to match
// against.
func dropUnmatched(citations []model.Citation) ([]model.Citation, int) {
	kept := citations[:0]
	dropped := 0
	for _, c := range citations {
		if c.DocumentID != "" {
			kept = append(kept, c)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

// filterConfidence drops citations below the configured floor.
func (e *Extractor) filterConfidence(citations []model.Citation) ([]model.Citation, int) {
	if e.cfg.MinConfidence <= 0 {
		return citations, 0
	}
	kept := citations[:0]
	dropped := 0
	for _, c := range citations {
		if c.Confidence >= e.cfg.MinConfidence {
			kept = append(kept, c)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

// capCitations keeps the most confident citations when over the limit,
// then restores reading order.
func (e *Extractor) capCitations(citations []model.Citation) []model.Citation {
	max := e.cfg.MaxCitations
	if max <= 0 || len(citations) <= max {
		return citations
	}
	byConfidence := make([]model.Citation, len(citations))
	copy(byConfidence, citations)
	sort.SliceStable(byConfidence, func(i, j int) bool {
		return byConfidence[i].Confidence > byConfidence[j].Confidence
	})
	kept := byConfidence[:max]
	sort.SliceStable(kept, func(i, j int) bool {
		return offsetOf(kept[i]) < offsetOf(kept[j])
	})
	return kept
}

func offsetOf(c model.Citation) int {
	if c.StartOffset != nil {
		return *c.StartOffset
	}
	return 0
}

// accuracyScore is the fraction of citations with high confidence.
func accuracyScore(citations []model.Citation) float64 {
	if len(citations) == 0 {
		return 0
	}
	high := 0
	for _, c := range citations {
		if c.Confidence >= 0.8 {
			high++
		}
	}
	return float64(high) / float64(len(citations))
}

// coverageScore is the fraction of source documents the citations
// reach. Without source context there is nothing to cover.
func coverageScore(citations []model.Citation, source *model.ContextResult) float64 {
	if source == nil {
		return 0
	}
	docs := source.DocumentIDs()
	if len(docs) == 0 {
		return 0
	}
	cited := make(map[string]bool)
	for _, c := range citations {
		if c.DocumentID != "" {
			cited[c.DocumentID] = true
		}
	}
	return float64(len(cited)) / float64(len(docs))
}

// qualityIssues flags structural problems with the extraction: source
// documents the answer ignores, or citations the extractor itself does
// not trust. Warnings cover style; issues demand attention.
func qualityIssues(citations []model.Citation, accuracy, coverage float64, source *model.ContextResult) []string {
	if len(citations) == 0 {
		return nil
	}
	var issues []string
	if source != nil && len(source.DocumentIDs()) > 0 && coverage < 0.5 {
		issues = append(issues, fmt.Sprintf("low source coverage: %.0f%% of context documents are cited", coverage*100))
	}
	if accuracy < 0.5 {
		issues = append(issues, fmt.Sprintf("low extraction accuracy: %.0f%% of citations carry high confidence", accuracy*100))
	}
	return issues
}

// qualityWarnings flags extraction results a reviewer would question.
func qualityWarnings(text string, citations []model.Citation) []string {
	var warnings []string

	references := 0
	quotes := 0
	for _, c := range citations {
		switch c.Kind {
		case model.KindReference:
			references++
		case model.KindDirectQuote:
			quotes++
		}
	}

	if references == 0 {
		warnings = append(warnings, "no classical references found")
	}
	if len(citations) > 1 && float64(quotes)/float64(len(citations)) > 0.5 {
		warnings = append(warnings, "more than half of citations are direct quotes")
	}

	words := len(strings.Fields(text))
	if words >= 200 && len(citations)*200 < words {
		warnings = append(warnings, "low citation density for text length")
	}

	return warnings
}
