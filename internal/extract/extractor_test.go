package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/scholiast/scholia/internal/compose"
	"github.com/scholiast/scholia/internal/model"
)

func testExtractorConfig() model.ExtractorConfig {
	return model.ExtractorConfig{
		MinConfidence:       0.5,
		MaxCitations:        30,
		SimilarityThreshold: 0.6,
	}
}

func republicContext() *model.ContextResult {
	return &model.ContextResult{
		Text: "In the cave the prisoners mistake shadows for reality and take echoes for voices.",
		Groups: []model.PassageGroup{
			{
				Passages: []model.Passage{
					{
						ID:           "p1",
						DocumentID:   "plato-republic",
						Text:         "In the cave the prisoners mistake shadows for reality and take echoes for voices.",
						SourceTitle:  "Republic",
						SourceAuthor: "Plato",
					},
				},
			},
		},
	}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestExtract_ClassicalReference(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	text := "As Plato argues in Republic 514a, the prisoners mistake shadows for reality."

	result := ex.Extract(context.Background(), text, nil)

	if len(result.Citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(result.Citations))
	}
	cit := result.Citations[0]
	if cit.Kind != model.KindReference {
		t.Errorf("Expected kind %s, got %s", model.KindReference, cit.Kind)
	}
	if !strings.Contains(cit.SourceReference, "Republic 514a") {
		t.Errorf("Expected locator containing 'Republic 514a', got %q", cit.SourceReference)
	}
	if cit.SourceAuthor != "Plato" {
		t.Errorf("Expected author backfilled to Plato, got %q", cit.SourceAuthor)
	}
	if cit.Context != model.ContextArgument {
		t.Errorf("Expected argument context, got %s", cit.Context)
	}
	if result.TotalMatches < 2 {
		t.Errorf("expected both patterns to fire, got %d matches", result.TotalMatches)
	}
	if !hasWarning(result.Warnings, "overlapping") {
		t.Errorf("expected overlap warning, got %v", result.Warnings)
	}
}

func TestExtract_AuthorNamedBeforeReference(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	text := "The ascent from the cave is described at Plato, Republic 514a and interpreted variously."

	result := ex.Extract(context.Background(), text, nil)

	if len(result.Citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(result.Citations))
	}
	cit := result.Citations[0]
	if cit.SourceAuthor != "Plato" {
		t.Errorf("Expected explicit author Plato, got %q", cit.SourceAuthor)
	}
	if cit.SourceTitle != "Republic" {
		t.Errorf("Expected work Republic, got %q", cit.SourceTitle)
	}
	if cit.StartOffset == nil || cit.EndOffset == nil {
		t.Fatal("expected offsets to be set")
	}
	if *cit.EndOffset <= *cit.StartOffset {
		t.Errorf("expected end offset after start, got [%d,%d)", *cit.StartOffset, *cit.EndOffset)
	}
}

func TestExtract_AttributedQuoteMatchesSource(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	text := `As Plato writes, "the prisoners mistake shadows for reality" and we should take note.`

	result := ex.Extract(context.Background(), text, republicContext())

	if len(result.Citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d: %+v", len(result.Citations), result.Citations)
	}
	cit := result.Citations[0]
	if cit.Kind != model.KindDirectQuote {
		t.Errorf("Expected direct quote, got %s", cit.Kind)
	}
	if cit.SourceAuthor != "Plato" {
		t.Errorf("Expected attribution to Plato, got %q", cit.SourceAuthor)
	}
	if cit.DocumentID != "plato-republic" {
		t.Errorf("Expected document match, got %q", cit.DocumentID)
	}
	if cit.SourceTitle != "Republic" {
		t.Errorf("Expected title backfilled from passage, got %q", cit.SourceTitle)
	}
	if result.ValidatedMatches != 1 {
		t.Errorf("Expected 1 validated match, got %d", result.ValidatedMatches)
	}
	if cit.Confidence < 0.75 {
		t.Errorf("expected attributed quote confidence boost, got %.2f", cit.Confidence)
	}
}

func TestExtract_UnattributedQuoteMatchesByContainment(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	text := `One commentator notes that "the prisoners mistake shadows for reality and take echoes for voices" without further argument.`

	result := ex.Extract(context.Background(), text, republicContext())

	if len(result.Citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(result.Citations))
	}
	cit := result.Citations[0]
	if cit.DocumentID != "plato-republic" {
		t.Errorf("Expected containment match, got document %q", cit.DocumentID)
	}
	if cit.Confidence < 0.75 {
		t.Errorf("expected containment confidence boost, got %.2f", cit.Confidence)
	}
	if result.ValidatedMatches != 1 {
		t.Errorf("Expected 1 validated match, got %d", result.ValidatedMatches)
	}
}

func TestExtract_LocatorMatchesContextCitation(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	source := republicContext()
	source.Citations = []model.CitationContext{
		{
			Citation: model.Citation{
				ID:               "ctx-1",
				DocumentID:       "plato-republic",
				SourceAuthor:     "Plato",
				SourceTitle:      "Republic",
				SourceReference:  "Republic 514a",
				SourceTranslator: "Benjamin Jowett",
			},
		},
	}
	text := "The point is made in Republic 514a."

	result := ex.Extract(context.Background(), text, source)

	if len(result.Citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(result.Citations))
	}
	cit := result.Citations[0]
	if cit.DocumentID != "plato-republic" {
		t.Errorf("Expected locator match, got document %q", cit.DocumentID)
	}
	if cit.SourceTranslator != "Benjamin Jowett" {
		t.Errorf("Expected translator backfilled from context, got %q", cit.SourceTranslator)
	}
}

func TestExtract_MinConfidenceFilters(t *testing.T) {
	cfg := testExtractorConfig()
	cfg.MinConfidence = 0.95
	ex := NewExtractor(cfg)

	result := ex.Extract(context.Background(), "See Republic 514a for the image of the cave.", nil)

	if len(result.Citations) != 0 {
		t.Fatalf("Expected all citations filtered, got %d", len(result.Citations))
	}
	if !hasWarning(result.Warnings, "below confidence") {
		t.Errorf("expected filter warning, got %v", result.Warnings)
	}
}

func TestExtract_MaxCitationsKeepsMostConfident(t *testing.T) {
	cfg := testExtractorConfig()
	cfg.MaxCitations = 2
	ex := NewExtractor(cfg)
	text := `Republic 514a opens the image. Next consider the Symposium 210a passage. As Seneca writes, "we suffer more often in imagination than in reality" here.`

	result := ex.Extract(context.Background(), text, nil)

	if len(result.Citations) != 2 {
		t.Fatalf("Expected 2 citations after cap, got %d", len(result.Citations))
	}
	if result.Citations[0].SourceReference != "Republic 514a" {
		t.Errorf("Expected Republic first by position, got %q", result.Citations[0].SourceReference)
	}
	if result.Citations[1].SourceReference != "Symposium 210a" {
		t.Errorf("Expected Symposium second, got %q", result.Citations[1].SourceReference)
	}
	for _, c := range result.Citations {
		if c.Kind != model.KindReference {
			t.Errorf("expected the quote to be capped away, got kind %s", c.Kind)
		}
	}
}

func TestExtract_NoCitations(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())

	result := ex.Extract(context.Background(), "Nothing here names any source or section at all.", nil)

	if len(result.Citations) != 0 {
		t.Fatalf("Expected no citations, got %d", len(result.Citations))
	}
	if result.TotalMatches != 0 {
		t.Errorf("Expected no matches, got %d", result.TotalMatches)
	}
	if !hasWarning(result.Warnings, "no classical references") {
		t.Errorf("expected missing-references warning, got %v", result.Warnings)
	}
	if result.AccuracyScore != 0 || result.CoverageScore != 0 {
		t.Errorf("expected zero scores, got accuracy %.2f coverage %.2f", result.AccuracyScore, result.CoverageScore)
	}
}

func TestExtract_EmptyText(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())

	result := ex.Extract(context.Background(), "   ", nil)

	if len(result.Citations) != 0 {
		t.Fatalf("Expected no citations, got %d", len(result.Citations))
	}
	if !hasWarning(result.Warnings, "no text") {
		t.Errorf("expected empty-text warning, got %v", result.Warnings)
	}
}

func TestExtract_ExcessiveQuotingWarning(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	text := `First "one sufficiently long quoted passage here" then "another sufficiently long quoted passage there" end.`

	result := ex.Extract(context.Background(), text, nil)

	if len(result.Citations) != 2 {
		t.Fatalf("Expected 2 quote citations, got %d", len(result.Citations))
	}
	if !hasWarning(result.Warnings, "direct quotes") {
		t.Errorf("expected quoting warning, got %v", result.Warnings)
	}
}

func TestExtract_RhetoricalContexts(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())

	tests := []struct {
		name string
		text string
		want model.RhetoricalContext
	}{
		{"counterargument", "However, as Plato argues in Republic 514a, the shadows deceive.", model.ContextCounterargument},
		{"example", "For example, Republic 514a shows prisoners watching shadows.", model.ContextExample},
		{"definition", "Justice is defined in Republic 433a as minding one's own business.", model.ContextDefinition},
		{"default explanation", "See Republic 514a on the image of the cave.", model.ContextExplanation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ex.Extract(context.Background(), tt.text, nil)
			if len(result.Citations) == 0 {
				t.Fatal("expected at least one citation")
			}
			if result.Citations[0].Context != tt.want {
				t.Errorf("Expected context %s, got %s", tt.want, result.Citations[0].Context)
			}
		})
	}
}

func TestExtract_CoverageAndAccuracy(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	source := republicContext()
	source.Groups = append(source.Groups, model.PassageGroup{
		Passages: []model.Passage{
			{
				ID:           "p2",
				DocumentID:   "aristotle-ethics",
				Text:         "Every art and every inquiry is thought to aim at some good.",
				SourceTitle:  "Nicomachean Ethics",
				SourceAuthor: "Aristotle",
			},
		},
	})
	text := "As stated in Republic 514a, the shadows deceive the prisoners."

	result := ex.Extract(context.Background(), text, source)

	if len(result.Citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(result.Citations))
	}
	if result.Citations[0].DocumentID != "plato-republic" {
		t.Errorf("Expected title match to Republic document, got %q", result.Citations[0].DocumentID)
	}
	if result.CoverageScore != 0.5 {
		t.Errorf("Expected coverage 0.5 with one of two documents cited, got %.2f", result.CoverageScore)
	}
	if result.AccuracyScore != 1.0 {
		t.Errorf("Expected accuracy 1.0 for a classical reference, got %.2f", result.AccuracyScore)
	}
}

func TestExtract_FormattedCitationRoundTrip(t *testing.T) {
	formatted := compose.FormatCitation(model.Citation{
		SourceAuthor:    "Plato",
		SourceTitle:     "Republic",
		SourceReference: "Republic 514a",
	}, "classical", 1)

	ex := NewExtractor(testExtractorConfig())
	text := "The point is made in " + formatted + ", where the den stands for our ignorance."

	result := ex.Extract(context.Background(), text, nil)

	found := false
	for _, cit := range result.Citations {
		if cit.Kind == model.KindReference && strings.Contains(cit.SourceReference, "Republic 514a") {
			found = true
			if cit.SourceAuthor != "Plato" {
				t.Errorf("Expected author recovered from the formatted citation, got %q", cit.SourceAuthor)
			}
		}
	}
	if !found {
		t.Fatalf("Expected a reference citation locating Republic 514a, got %+v", result.Citations)
	}
}

func TestExtract_DiscardsUnmatchedCitations(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	source := republicContext()
	source.Groups = append(source.Groups,
		model.PassageGroup{
			Passages: []model.Passage{
				{
					ID:           "p2",
					DocumentID:   "aristotle-ethics",
					Text:         "Every art and every inquiry is thought to aim at some good.",
					SourceTitle:  "Nicomachean Ethics",
					SourceAuthor: "Aristotle",
				},
			},
		},
		model.PassageGroup{
			Passages: []model.Passage{
				{
					ID:           "p3",
					DocumentID:   "cicero-duties",
					Text:         "For there is no phase of life that can be without its moral duty.",
					SourceTitle:  "On Duties",
					SourceAuthor: "Cicero",
				},
			},
		})
	text := "As stated in Republic 514a, the shadows deceive. Virgil's Aeneid sings of arms and the man."

	result := ex.Extract(context.Background(), text, source)

	if len(result.Citations) != 1 {
		t.Fatalf("Expected the unmatched citation discarded, got %d: %+v", len(result.Citations), result.Citations)
	}
	if result.Citations[0].DocumentID != "plato-republic" {
		t.Errorf("Expected the matched citation kept, got %q", result.Citations[0].DocumentID)
	}
	if !hasWarning(result.Warnings, "no matching source") {
		t.Errorf("expected unmatched warning, got %v", result.Warnings)
	}
	if result.CoverageScore >= 0.5 {
		t.Fatalf("Expected coverage below half with one of three documents cited, got %.2f", result.CoverageScore)
	}
	if !hasWarning(result.Issues, "low source coverage") {
		t.Errorf("expected coverage issue, got %v", result.Issues)
	}
}

func TestExtract_PossessiveWorkMention(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())

	result := ex.Extract(context.Background(), "Plato's Republic describes the cave in detail.", nil)

	if len(result.Citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(result.Citations))
	}
	cit := result.Citations[0]
	if cit.Kind != model.KindParaphrase {
		t.Errorf("Expected paraphrase, got %s", cit.Kind)
	}
	if cit.SourceAuthor != "Plato" || cit.SourceTitle != "Republic" {
		t.Errorf("Expected Plato / Republic, got %q / %q", cit.SourceAuthor, cit.SourceTitle)
	}

	// A possessive over an unknown single-word noun is not a citation.
	result = ex.Extract(context.Background(), "Marcus's Hammer broke during the demonstration.", nil)
	if len(result.Citations) != 0 {
		t.Errorf("Expected no citations for unknown possessive, got %d", len(result.Citations))
	}
}

func TestExtract_AllusionMarker(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())

	result := ex.Extract(context.Background(), "The closing image, echoing Heraclitus, returns to the river.", nil)

	if len(result.Citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(result.Citations))
	}
	if result.Citations[0].Kind != model.KindAllusion {
		t.Errorf("Expected allusion, got %s", result.Citations[0].Kind)
	}
	if result.Citations[0].SourceAuthor != "Heraclitus" {
		t.Errorf("Expected Heraclitus, got %q", result.Citations[0].SourceAuthor)
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	ex := NewExtractor(testExtractorConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := ex.Extract(ctx, "See Republic 514a.", nil)

	if len(result.Citations) != 0 {
		t.Fatalf("Expected no citations after cancel, got %d", len(result.Citations))
	}
	if len(result.Issues) == 0 || !strings.Contains(result.Issues[0], "canceled") {
		t.Errorf("expected cancellation issue, got %v", result.Issues)
	}
}
