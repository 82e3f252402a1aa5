package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/scholiast/scholia/internal/model"
)

// stubRetriever returns a fixed passage set and records what it was
// asked for.
type stubRetriever struct {
	passages  []model.Passage
	err       error
	lastQuery string
	lastTopK  int
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string, topK int) ([]model.Passage, error) {
	r.lastQuery = query
	r.lastTopK = topK
	if r.err != nil {
		return nil, r.err
	}
	return r.passages, nil
}

func (r *stubRetriever) Name() string { return "stub" }

func platoPassages() []model.Passage {
	return []model.Passage{
		{
			DocumentID:   "doc-republic",
			Text:         "Behold human beings living in an underground den. Here they have been from their childhood, and have their legs and necks chained so that they cannot move. The shadows on the wall are the only truth such prisoners would credit.",
			Position:     0,
			Relevance:    0.9,
			SourceTitle:  "Republic",
			SourceAuthor: "Plato",
			Metadata:     map[string]any{"reference": "Republic 514a"},
		},
		{
			DocumentID:   "doc-ethics",
			Text:         "Every art and every inquiry, and similarly every action and pursuit, is thought to aim at some good; and for this reason the good has rightly been declared to be that at which all things aim.",
			Position:     0,
			Relevance:    0.8,
			SourceTitle:  "Nicomachean Ethics",
			SourceAuthor: "Aristotle",
			Metadata:     map[string]any{"reference": "Nicomachean Ethics 1094a1"},
		},
	}
}

const caveAnswer = `Plato argues that the prisoners mistake shadows for reality (Plato, Republic 514a). As Plato writes, "the shadows on the wall are the only truth such prisoners would credit". Aristotle holds that every pursuit aims at some good (Aristotle, Nicomachean Ethics 1094a1).`

func newTestPipeline(t *testing.T, passages []model.Passage) (*Pipeline, *stubRetriever) {
	t.Helper()
	retriever := &stubRetriever{passages: passages}
	p, err := NewPipeline(model.DefaultConfig(), retriever)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p, retriever
}

func TestNewPipeline_RequiresRetriever(t *testing.T) {
	_, err := NewPipeline(model.DefaultConfig(), nil)
	if err == nil {
		t.Fatal("expected error for nil retriever")
	}
}

func TestNewPipeline_RejectsInvalidConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Composer.MaxTokens = -1

	_, err := NewPipeline(cfg, &stubRetriever{})
	if err == nil {
		t.Fatal("expected error for invalid configuration")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcess_EndToEnd(t *testing.T) {
	p, retriever := newTestPipeline(t, platoPassages())

	report, err := p.Process(context.Background(), "What is the allegory of the cave?", caveAnswer)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if retriever.lastQuery != "What is the allegory of the cave?" {
		t.Errorf("retriever saw query %q", retriever.lastQuery)
	}
	if retriever.lastTopK != 12 {
		t.Errorf("retriever saw topK %d, want 12", retriever.lastTopK)
	}

	if report.Strategy != model.StrategyStitching {
		t.Errorf("strategy = %q, want stitching", report.Strategy)
	}
	if report.Context.TotalTokens == 0 {
		t.Error("context summary has no token count")
	}
	if report.Context.DocumentCount != 2 {
		t.Errorf("document count = %d, want 2", report.Context.DocumentCount)
	}

	if len(report.Citations) != 3 {
		t.Fatalf("got %d citations, want 3: %+v", len(report.Citations), report.Citations)
	}
	kinds := []model.CitationKind{report.Citations[0].Kind, report.Citations[1].Kind, report.Citations[2].Kind}
	want := []model.CitationKind{model.KindReference, model.KindDirectQuote, model.KindReference}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("citation %d kind = %q, want %q", i, kinds[i], want[i])
		}
	}
	for i, cit := range report.Citations {
		if cit.DocumentID == "" {
			t.Errorf("citation %d not matched to a source document", i)
		}
	}

	if report.Validation == nil {
		t.Fatal("report has no validation result")
	}
	if !report.Validation.AllValid {
		t.Errorf("expected all citations valid: %+v", report.Validation.Results)
	}
	if report.Validation.TotalCount != 3 {
		t.Errorf("validation total = %d, want 3", report.Validation.TotalCount)
	}
	for i, cit := range report.Citations {
		if cit.Confidence != report.Validation.Results[i].Confidence {
			t.Errorf("citation %d confidence %.3f not adopted from validation %.3f",
				i, cit.Confidence, report.Validation.Results[i].Confidence)
		}
	}

	if report.Extraction.TotalMatches != 3 {
		t.Errorf("extraction matches = %d, want 3", report.Extraction.TotalMatches)
	}
	if report.Extraction.CoverageScore != 1.0 {
		t.Errorf("coverage = %.2f, want 1.0 (both documents cited)", report.Extraction.CoverageScore)
	}

	if report.Network == nil {
		t.Fatal("report has no network snapshot")
	}
	if len(report.Network.Citations) != 3 {
		t.Errorf("network has %d citations, want 3", len(report.Network.Citations))
	}

	if !strings.Contains(report.Attribution, "Plato, Republic 514a") {
		t.Errorf("attribution missing Plato: %q", report.Attribution)
	}
	if !strings.Contains(report.Attribution, "Aristotle, Nicomachean Ethics 1094a1") {
		t.Errorf("attribution missing Aristotle: %q", report.Attribution)
	}

	if report.Answer == nil || report.Answer.Provider != "external" {
		t.Errorf("externally supplied answer not recorded: %+v", report.Answer)
	}
}

func TestProcess_RecordsProvenance(t *testing.T) {
	p, _ := newTestPipeline(t, platoPassages())

	report, err := p.Process(context.Background(), "What is the allegory of the cave?", caveAnswer)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for i, cit := range report.Citations {
		history := p.Tracker().History(cit.ID)
		if len(history) < 3 {
			t.Fatalf("citation %d has %d provenance records, want at least 3", i, len(history))
		}
		if history[0].Event != model.EventExtracted {
			t.Errorf("citation %d first event = %q, want extracted", i, history[0].Event)
		}
		if history[1].Event != model.EventValidated {
			t.Errorf("citation %d second event = %q, want validated", i, history[1].Event)
		}
		if history[2].Event != model.EventReferenced {
			t.Errorf("citation %d third event = %q, want referenced", i, history[2].Event)
		}

		if len(history[1].Changes) != 1 || history[1].Changes[0].Field != "confidence" {
			t.Errorf("citation %d validation event should record a confidence change: %+v", i, history[1].Changes)
		}
		if c := history[1].Changes[0]; c.Previous == c.Current {
			t.Errorf("citation %d confidence change records no difference: %+v", i, c)
		}

		usage, ok := p.Tracker().Usage(cit.ID)
		if !ok {
			t.Fatalf("citation %d has no usage stats", i)
		}
		if usage.ReferenceCount != 1 {
			t.Errorf("citation %d reference count = %d, want 1", i, usage.ReferenceCount)
		}
	}
}

func TestProcess_DetectsRelationships(t *testing.T) {
	p, _ := newTestPipeline(t, platoPassages())

	answer := "The ascent narrative runs from the den (Plato, Republic 514a) toward the sun (Plato, Republic 517c)."
	report, err := p.Process(context.Background(), "How does the cave allegory end?", answer)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(report.Citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(report.Citations))
	}
	if report.Network == nil || len(report.Network.Relationships) == 0 {
		t.Fatal("expected the two Republic references to be related")
	}

	rel := report.Network.Relationships[0]
	if rel.Kind != model.RelSupports {
		t.Errorf("relationship kind = %q, want supports", rel.Kind)
	}
	if rel.CreatedBy != "similarity" {
		t.Errorf("relationship created by %q, want similarity", rel.CreatedBy)
	}

	// The report citations carry the detected edges.
	if len(report.Citations[0].Relationships) == 0 {
		t.Error("first citation missing its relationship")
	}
	if len(report.Citations[1].Relationships) == 0 {
		t.Error("second citation missing its relationship")
	}

	// The linking is recorded as a provenance event on the edge source.
	history := p.Tracker().History(rel.SourceID)
	var linked bool
	for _, record := range history {
		if record.Event == model.EventLinked {
			linked = true
			if len(record.Changes) == 0 || record.Changes[0].Field != "relationships" {
				t.Errorf("linked event should name the relationship: %+v", record.Changes)
			}
		}
	}
	if !linked {
		t.Error("no linked event recorded for the edge source")
	}
}

func TestProcess_AccumulatesAcrossQueries(t *testing.T) {
	p, _ := newTestPipeline(t, platoPassages())

	answer := "The image of the den appears at (Plato, Republic 514a)."
	ctx := context.Background()

	first, err := p.Process(ctx, "Where does the cave image appear?", answer)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	if len(first.Citations) != 1 {
		t.Fatalf("first run got %d citations, want 1", len(first.Citations))
	}

	second, err := p.Process(ctx, "Where is the allegory introduced?", answer)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}

	if len(second.Network.Citations) != 2 {
		t.Errorf("network should accumulate across queries: %d citations", len(second.Network.Citations))
	}
	// The same reference in two answers links across runs.
	if len(second.Network.Relationships) == 0 {
		t.Error("expected a relationship between the runs' citations")
	}
}

func TestProcess_GenerationDisabled(t *testing.T) {
	p, _ := newTestPipeline(t, platoPassages())

	if p.Generating() {
		t.Fatal("no provider configured, generation should be disabled")
	}

	report, err := p.ProcessQuery(context.Background(), "What is the allegory of the cave?")
	if err != nil {
		t.Fatalf("ProcessQuery failed: %v", err)
	}

	if report.Answer == nil || len(report.Answer.Warnings) == 0 {
		t.Fatalf("disabled generation should surface a warning: %+v", report.Answer)
	}
	if !strings.Contains(report.Answer.Warnings[0], "disabled") {
		t.Errorf("unexpected warning: %q", report.Answer.Warnings[0])
	}
	if len(report.Citations) != 0 {
		t.Errorf("no answer text, expected no citations, got %d", len(report.Citations))
	}
	// Context and attribution are still produced.
	if report.Context.DocumentCount != 2 {
		t.Errorf("document count = %d, want 2", report.Context.DocumentCount)
	}
	if report.Attribution == "" {
		t.Error("attribution should list the composed sources")
	}
}

func TestProcess_EmptyQuery(t *testing.T) {
	p, _ := newTestPipeline(t, platoPassages())
	if _, err := p.Process(context.Background(), "", "answer"); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestProcess_RetrieverError(t *testing.T) {
	retriever := &stubRetriever{err: fmt.Errorf("backend unreachable")}
	p, err := NewPipeline(model.DefaultConfig(), retriever)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	_, err = p.Process(context.Background(), "What is virtue?", "Virtue is knowledge.")
	if err == nil {
		t.Fatal("expected retrieval error to propagate")
	}
	if !strings.Contains(err.Error(), "retrieve passages") {
		t.Errorf("unexpected error: %v", err)
	}
}
