package track

import (
	"math"
	"strings"
	"testing"

	"github.com/scholiast/scholia/internal/model"
)

func testTrackerConfig() model.TrackerConfig {
	return model.TrackerConfig{
		MaxEventsPerCitation: 100,
		Policy:               "similarity",
		AutoDetect:           true,
		AutoDetectThreshold:  0.6,
	}
}

func caveCitation(id string) model.Citation {
	return model.Citation{
		ID:           id,
		Text:         "the shadows deceive the prisoners in the cave",
		Kind:         model.KindReference,
		Context:      model.ContextArgument,
		SourceAuthor: "Plato",
		SourceTitle:  "Republic",
		Confidence:   0.9,
	}
}

func TestTracker_EventHistory(t *testing.T) {
	tr := NewTracker(testTrackerConfig())
	cit := caveCitation("cit-a")

	kinds := []model.EventKind{model.EventCreated, model.EventExtracted, model.EventValidated}
	for _, kind := range kinds {
		if _, err := tr.TrackEvent(cit, kind, model.SourceExtraction, nil); err != nil {
			t.Fatalf("TrackEvent(%s) failed: %v", kind, err)
		}
	}

	history := tr.History("cit-a")
	if len(history) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(history))
	}
	for i, record := range history {
		if record.Event != kinds[i] {
			t.Errorf("record %d: expected %s, got %s", i, kinds[i], record.Event)
		}
		if record.CitationID != "cit-a" {
			t.Errorf("record %d: expected citation cit-a, got %s", i, record.CitationID)
		}
		if record.Processor != "extractor" {
			t.Errorf("record %d: expected processor extractor, got %s", i, record.Processor)
		}
		if record.ID == "" {
			t.Errorf("record %d missing id", i)
		}
	}
}

func TestTracker_RejectsInvalidEvents(t *testing.T) {
	tr := NewTracker(testTrackerConfig())

	if _, err := tr.TrackEvent(model.Citation{}, model.EventCreated, model.SourceExtraction, nil); err == nil {
		t.Error("expected error for citation without id")
	}
	if _, err := tr.TrackEvent(caveCitation("x"), "exploded", model.SourceExtraction, nil); err == nil {
		t.Error("expected error for unknown event kind")
	}
	if _, err := tr.TrackEvent(caveCitation("x"), model.EventCreated, "nowhere", nil); err == nil {
		t.Error("expected error for unknown source kind")
	}
}

func TestTracker_EventCapEvictsOldest(t *testing.T) {
	cfg := testTrackerConfig()
	cfg.MaxEventsPerCitation = 3
	tr := NewTracker(cfg)
	cit := caveCitation("cit-a")

	kinds := []model.EventKind{
		model.EventCreated, model.EventExtracted, model.EventValidated,
		model.EventReferenced, model.EventModified,
	}
	for _, kind := range kinds {
		if _, err := tr.TrackEvent(cit, kind, model.SourceTracking, nil); err != nil {
			t.Fatalf("TrackEvent(%s) failed: %v", kind, err)
		}
	}

	history := tr.History("cit-a")
	if len(history) != 3 {
		t.Fatalf("Expected history capped at 3, got %d", len(history))
	}
	if history[0].Event != model.EventValidated {
		t.Errorf("Expected oldest surviving event to be validated, got %s", history[0].Event)
	}
	if history[2].Event != model.EventModified {
		t.Errorf("Expected newest event to be modified, got %s", history[2].Event)
	}
}

func TestDiffFields(t *testing.T) {
	previous := caveCitation("cit-a")
	current := previous
	current.Text = "the prisoners mistake shadows for the things themselves"
	current.SourceReference = "Republic 514a"
	current.Confidence = 0.75

	changes := DiffFields(previous, current)
	if len(changes) != 3 {
		t.Fatalf("Expected 3 changes, got %d: %v", len(changes), changes)
	}

	byField := map[string]model.FieldChange{}
	for _, change := range changes {
		byField[change.Field] = change
	}
	if byField["text"].Previous != previous.Text || byField["text"].Current != current.Text {
		t.Errorf("unexpected text diff: %+v", byField["text"])
	}
	if byField["locator"].Previous != "" || byField["locator"].Current != "Republic 514a" {
		t.Errorf("unexpected locator diff: %+v", byField["locator"])
	}
	if byField["confidence"].Previous != "0.900" || byField["confidence"].Current != "0.750" {
		t.Errorf("unexpected confidence diff: %+v", byField["confidence"])
	}

	if diff := DiffFields(previous, previous); diff != nil {
		t.Errorf("Expected no diff for identical states, got %v", diff)
	}
}

func TestTracker_UsageStats(t *testing.T) {
	tr := NewTracker(testTrackerConfig())
	cit := caveCitation("cit-a")

	for _, conf := range []float64{0.6, 0.8, 1.0} {
		cit.Confidence = conf
		if _, err := tr.TrackEvent(cit, model.EventReferenced, model.SourceGeneration, nil); err != nil {
			t.Fatalf("TrackEvent failed: %v", err)
		}
	}

	stats, ok := tr.Usage("cit-a")
	if !ok {
		t.Fatal("Expected usage stats")
	}
	if stats.ReferenceCount != 3 {
		t.Errorf("Expected 3 references, got %d", stats.ReferenceCount)
	}
	if math.Abs(stats.MeanConfidence-0.8) > 1e-9 {
		t.Errorf("Expected mean confidence 0.8, got %.6f", stats.MeanConfidence)
	}
	if stats.ByKind[string(model.KindReference)] != 3 {
		t.Errorf("Expected 3 reference-kind uses, got %d", stats.ByKind[string(model.KindReference)])
	}
	if stats.ByContext[string(model.ContextArgument)] != 3 {
		t.Errorf("Expected 3 argument uses, got %d", stats.ByContext[string(model.ContextArgument)])
	}
	if stats.FirstUsed.IsZero() || stats.LastUsed.Before(stats.FirstUsed) {
		t.Errorf("expected ordered usage timestamps, got %v / %v", stats.FirstUsed, stats.LastUsed)
	}

	if _, ok := tr.Usage("never-seen"); ok {
		t.Error("expected no stats for untracked citation")
	}
}

func TestTracker_AddRelationshipIdempotent(t *testing.T) {
	tr := NewTracker(testTrackerConfig())
	a := caveCitation("cit-a")
	b := caveCitation("cit-b")
	tr.TrackEvent(a, model.EventCreated, model.SourceExtraction, nil)
	tr.TrackEvent(b, model.EventCreated, model.SourceExtraction, nil)

	first, created, err := tr.AddRelationship("cit-a", "cit-b", model.RelSupports, 0.9, 0.8, "test")
	if err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}
	if !created {
		t.Fatal("Expected first edge to be created")
	}

	second, created, err := tr.AddRelationship("cit-a", "cit-b", model.RelSupports, 0.5, 0.5, "test")
	if err != nil {
		t.Fatalf("repeat AddRelationship failed: %v", err)
	}
	if created {
		t.Error("Expected repeated edge to be idempotent")
	}
	if second.ID != first.ID {
		t.Errorf("Expected same edge back, got %s and %s", first.ID, second.ID)
	}
	if second.Strength != 0.9 {
		t.Errorf("Expected original strength preserved, got %.2f", second.Strength)
	}

	if _, created, _ := tr.AddRelationship("cit-a", "cit-b", model.RelElaborates, 0.7, 0.7, "test"); !created {
		t.Error("Expected a different kind to create a new edge")
	}
	if got := len(tr.Relationships("cit-a")); got != 2 {
		t.Errorf("Expected 2 edges touching cit-a, got %d", got)
	}
}

func TestTracker_RelationshipValidation(t *testing.T) {
	tr := NewTracker(testTrackerConfig())

	if _, _, err := tr.AddRelationship("", "cit-b", model.RelSupports, 1, 1, ""); err == nil {
		t.Error("expected error for missing endpoint")
	}
	if _, _, err := tr.AddRelationship("cit-a", "cit-a", model.RelSupports, 1, 1, ""); err == nil {
		t.Error("expected error for self relationship")
	}
	if _, _, err := tr.AddRelationship("cit-a", "cit-b", "admires", 1, 1, ""); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestTracker_MirrorsRelationships(t *testing.T) {
	tr := NewTracker(testTrackerConfig())
	a := caveCitation("cit-a")
	b := caveCitation("cit-b")
	tr.TrackEvent(a, model.EventCreated, model.SourceExtraction, nil)
	tr.TrackEvent(b, model.EventCreated, model.SourceExtraction, nil)

	if _, _, err := tr.AddRelationship("cit-a", "cit-b", model.RelSupports, 0.9, 0.9, "test"); err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}

	for _, cit := range tr.Citations() {
		if len(cit.Relationships) != 1 {
			t.Errorf("citation %s: expected 1 mirrored edge, got %d", cit.ID, len(cit.Relationships))
		}
	}

	if err := tr.RemoveRelationship("cit-a", "cit-b", model.RelSupports); err != nil {
		t.Fatalf("RemoveRelationship failed: %v", err)
	}
	for _, cit := range tr.Citations() {
		if len(cit.Relationships) != 0 {
			t.Errorf("citation %s: expected edge unmirrored, got %d", cit.ID, len(cit.Relationships))
		}
	}
	if err := tr.RemoveRelationship("cit-a", "cit-b", model.RelSupports); err == nil {
		t.Error("expected error removing a missing edge")
	}
}

func TestBuildNetwork_EmptyAndComplete(t *testing.T) {
	tr := NewTracker(testTrackerConfig())
	for _, id := range []string{"cit-a", "cit-b", "cit-c"} {
		tr.TrackEvent(caveCitation(id), model.EventCreated, model.SourceExtraction, nil)
	}

	net := tr.BuildNetwork()
	if net.Density != 0.0 {
		t.Errorf("Expected density 0.0 with no edges, got %.3f", net.Density)
	}
	labels := map[int]bool{}
	for _, label := range net.Communities {
		labels[label] = true
	}
	if len(labels) != 3 {
		t.Errorf("Expected 3 singleton communities, got %d", len(labels))
	}

	tr.AddRelationship("cit-a", "cit-b", model.RelSupports, 1, 1, "test")
	tr.AddRelationship("cit-b", "cit-c", model.RelSupports, 1, 1, "test")
	tr.AddRelationship("cit-a", "cit-c", model.RelSupports, 1, 1, "test")

	net = tr.BuildNetwork()
	if net.Density != 1.0 {
		t.Errorf("Expected density 1.0 for a complete graph, got %.3f", net.Density)
	}
	for id, c := range net.Centrality {
		if c != 1.0 {
			t.Errorf("node %s: expected centrality 1.0, got %.3f", id, c)
		}
	}
	for id, label := range net.Communities {
		if label != 0 {
			t.Errorf("node %s: expected community 0, got %d", id, label)
		}
	}
}

func TestBuildNetwork_SingleAndPair(t *testing.T) {
	tr := NewTracker(testTrackerConfig())
	tr.TrackEvent(caveCitation("cit-a"), model.EventCreated, model.SourceExtraction, nil)

	net := tr.BuildNetwork()
	if net.Density != 0.0 {
		t.Errorf("Expected density 0.0 for a single node, got %.3f", net.Density)
	}

	tr.TrackEvent(caveCitation("cit-b"), model.EventCreated, model.SourceExtraction, nil)
	tr.AddRelationship("cit-a", "cit-b", model.RelSupports, 1, 1, "test")

	net = tr.BuildNetwork()
	if net.Density != 1.0 {
		t.Errorf("Expected density 1.0 for a connected pair, got %.3f", net.Density)
	}
}

func TestBuildNetwork_PartialGraph(t *testing.T) {
	tr := NewTracker(testTrackerConfig())
	for _, id := range []string{"cit-a", "cit-b", "cit-c"} {
		tr.TrackEvent(caveCitation(id), model.EventCreated, model.SourceExtraction, nil)
	}
	tr.AddRelationship("cit-a", "cit-b", model.RelSupports, 1, 1, "test")

	net := tr.BuildNetwork()
	if math.Abs(net.Density-1.0/3.0) > 1e-12 {
		t.Errorf("Expected density 1/3, got %.4f", net.Density)
	}
	if net.Centrality["cit-a"] != 0.5 || net.Centrality["cit-c"] != 0 {
		t.Errorf("unexpected centrality: %v", net.Centrality)
	}
	if net.Communities["cit-a"] != net.Communities["cit-b"] {
		t.Error("Expected connected nodes in one community")
	}
	if net.Communities["cit-c"] == net.Communities["cit-a"] {
		t.Error("Expected isolated node in its own community")
	}

	// A parallel edge of another kind is still one connection.
	tr.AddRelationship("cit-a", "cit-b", model.RelElaborates, 1, 1, "test")
	net = tr.BuildNetwork()
	if math.Abs(net.Density-1.0/3.0) > 1e-12 {
		t.Errorf("Expected density unchanged by parallel edge, got %.4f", net.Density)
	}
}

func TestDetectRelationships(t *testing.T) {
	tr := NewTracker(testTrackerConfig())

	a := caveCitation("cit-a")
	b := caveCitation("cit-b")
	b.Text = "the shadows deceive the prisoners within the cave"
	b.Confidence = 0.8
	c := model.Citation{
		ID:           "cit-c",
		Text:         "virtue is a mean between extremes",
		Kind:         model.KindParaphrase,
		SourceAuthor: "Aristotle",
		SourceTitle:  "Nicomachean Ethics",
		Confidence:   0.7,
	}

	created, err := tr.DetectRelationships([]model.Citation{a, b, c})
	if err != nil {
		t.Fatalf("DetectRelationships failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Expected 1 detected edge, got %d", len(created))
	}
	rel := created[0]
	if rel.Kind != model.RelSupports {
		t.Errorf("Expected supports between same-work citations, got %s", rel.Kind)
	}
	if rel.Strength < 0.9 {
		t.Errorf("Expected strong edge, got %.3f", rel.Strength)
	}
	if rel.Confidence != 0.8 {
		t.Errorf("Expected confidence min(0.9, 0.8), got %.2f", rel.Confidence)
	}
	if rel.CreatedBy != "similarity" {
		t.Errorf("Expected policy name as creator, got %q", rel.CreatedBy)
	}

	// Re-running detects nothing new.
	created, err = tr.DetectRelationships([]model.Citation{a, b, c})
	if err != nil {
		t.Fatalf("second DetectRelationships failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("Expected idempotent detection, got %d new edges", len(created))
	}
}

func TestDetectRelationships_Disabled(t *testing.T) {
	cfg := testTrackerConfig()
	cfg.AutoDetect = false
	tr := NewTracker(cfg)
	created, err := tr.DetectRelationships([]model.Citation{caveCitation("a"), caveCitation("b")})
	if err != nil || created != nil {
		t.Errorf("Expected nothing with auto-detect off, got %v, %v", created, err)
	}

	cfg = testTrackerConfig()
	cfg.Policy = "none"
	tr = NewTracker(cfg)
	created, err = tr.DetectRelationships([]model.Citation{caveCitation("a"), caveCitation("b")})
	if err != nil || created != nil {
		t.Errorf("Expected nothing with none policy, got %v, %v", created, err)
	}

	cfg = testTrackerConfig()
	cfg.Policy = "astrology"
	tr = NewTracker(cfg)
	if _, err := tr.DetectRelationships([]model.Citation{caveCitation("a"), caveCitation("b")}); err == nil {
		t.Error("expected error for unknown policy")
	} else if !strings.Contains(err.Error(), "unknown relationship policy") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestImpact(t *testing.T) {
	tr := NewTracker(testTrackerConfig())
	x := caveCitation("cit-x")
	x.Confidence = 0.8
	y := caveCitation("cit-y")

	for i := 0; i < 3; i++ {
		if _, err := tr.TrackEvent(x, model.EventReferenced, model.SourceGeneration, nil); err != nil {
			t.Fatalf("TrackEvent failed: %v", err)
		}
	}
	if _, err := tr.TrackEvent(x, model.EventValidated, model.SourceValidation, nil); err != nil {
		t.Fatalf("TrackEvent failed: %v", err)
	}
	tr.TrackEvent(y, model.EventCreated, model.SourceExtraction, nil)
	tr.AddRelationship("cit-y", "cit-x", model.RelSupports, 1.0, 1.0, "test")

	report, err := tr.Impact("cit-x", 30)
	if err != nil {
		t.Fatalf("Impact failed: %v", err)
	}
	if report.EventCount != 4 {
		t.Errorf("Expected 4 events in window, got %d", report.EventCount)
	}
	if report.ReferenceCount != 3 {
		t.Errorf("Expected 3 references, got %d", report.ReferenceCount)
	}
	if report.RelationshipCount != 1 {
		t.Errorf("Expected 1 relationship, got %d", report.RelationshipCount)
	}
	if math.Abs(report.ValidationRate-0.25) > 1e-9 {
		t.Errorf("Expected validation rate 0.25, got %.4f", report.ValidationRate)
	}
	if math.Abs(report.MeanConfidence-0.8) > 1e-9 {
		t.Errorf("Expected mean confidence 0.8, got %.4f", report.MeanConfidence)
	}
	// 0.4*(3/10) + 0.3*(1/5) + 0.3*0.8*0.25
	if math.Abs(report.ImpactScore-0.24) > 1e-9 {
		t.Errorf("Expected impact 0.24, got %.4f", report.ImpactScore)
	}
	// One incoming supports edge at full strength.
	if math.Abs(report.InfluenceScore-0.2) > 1e-9 {
		t.Errorf("Expected influence 0.2, got %.4f", report.InfluenceScore)
	}

	if report, err = tr.Impact("cit-x", 0); err != nil || report.EventCount != 4 {
		t.Errorf("Expected full history with zero window, got %d events, err %v", report.EventCount, err)
	}

	if _, err := tr.Impact("cit-unknown", 30); err == nil {
		t.Error("expected error for untracked citation")
	}
}
