// Package track records citation provenance: lifecycle events, usage
// statistics, and typed relationships between citations. Everything is
// held in memory behind one lock; snapshots returned to callers are
// copies.
package track

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scholiast/scholia/internal/model"
)

// processorNames maps the event source to the pipeline stage name
// recorded on provenance entries.
var processorNames = map[model.SourceKind]string{
	model.SourceRetrieval:  "retriever",
	model.SourceGeneration: "generator",
	model.SourceExtraction: "extractor",
	model.SourceValidation: "validator",
	model.SourceTracking:   "tracker",
	model.SourceUser:       "user",
}

// Tracker records citation provenance and relationships in memory.
type Tracker struct {
	mu  sync.RWMutex
	cfg model.TrackerConfig

	citations map[string]model.Citation
	order     []string

	events map[string][]model.ProvenanceRecord
	usage  map[string]*model.UsageStats

	relationships []model.CitationRelationship
	relIndex      map[string]int // "src|dst|kind" -> index into relationships
}

// NewTracker creates a tracker with the given configuration.
func NewTracker(cfg model.TrackerConfig) *Tracker {
	return &Tracker{
		cfg:       cfg,
		citations: make(map[string]model.Citation),
		events:    make(map[string][]model.ProvenanceRecord),
		usage:     make(map[string]*model.UsageStats),
		relIndex:  make(map[string]int),
	}
}

// TrackEvent appends one provenance record for a citation and updates
// the stored citation state. Referenced events additionally update the
// citation's usage statistics.
func (t *Tracker) TrackEvent(cit model.Citation, event model.EventKind, source model.SourceKind, changes []model.FieldChange) (model.ProvenanceRecord, error) {
	if cit.ID == "" {
		return model.ProvenanceRecord{}, fmt.Errorf("track event: citation has no identifier")
	}
	if !event.Valid() {
		return model.ProvenanceRecord{}, fmt.Errorf("track event: unknown event kind %q", event)
	}
	if !source.Valid() {
		return model.ProvenanceRecord{}, fmt.Errorf("track event: unknown source kind %q", source)
	}

	record := model.ProvenanceRecord{
		ID:         uuid.NewString(),
		CitationID: cit.ID,
		Event:      event,
		Source:     source,
		Processor:  processorNames[source],
		Confidence: model.Clamp01(cit.Confidence),
		Changes:    changes,
		RecordedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, known := t.citations[cit.ID]; !known {
		t.order = append(t.order, cit.ID)
	}
	t.citations[cit.ID] = cit

	list := append(t.events[cit.ID], record)
	if max := t.cfg.MaxEventsPerCitation; max > 0 && len(list) > max {
		list = append([]model.ProvenanceRecord(nil), list[len(list)-max:]...)
	}
	t.events[cit.ID] = list

	if event == model.EventReferenced {
		t.updateUsage(cit, record)
	}

	return record, nil
}

// DiffFields compares two states of a citation and returns one change
// per tracked field that differs: text, kind, context, locator, and
// confidence. Identical states yield nil.
func DiffFields(previous, current model.Citation) []model.FieldChange {
	var changes []model.FieldChange
	if previous.Text != current.Text {
		changes = append(changes, model.FieldChange{Field: "text", Previous: previous.Text, Current: current.Text})
	}
	if previous.Kind != current.Kind {
		changes = append(changes, model.FieldChange{Field: "kind", Previous: string(previous.Kind), Current: string(current.Kind)})
	}
	if previous.Context != current.Context {
		changes = append(changes, model.FieldChange{Field: "context", Previous: string(previous.Context), Current: string(current.Context)})
	}
	if previous.SourceReference != current.SourceReference {
		changes = append(changes, model.FieldChange{Field: "locator", Previous: previous.SourceReference, Current: current.SourceReference})
	}
	if previous.Confidence != current.Confidence {
		changes = append(changes, model.FieldChange{
			Field:    "confidence",
			Previous: fmt.Sprintf("%.3f", previous.Confidence),
			Current:  fmt.Sprintf("%.3f", current.Confidence),
		})
	}
	return changes
}

// updateUsage folds a referenced event into the citation's usage stats.
// Caller holds the lock.
func (t *Tracker) updateUsage(cit model.Citation, record model.ProvenanceRecord) {
	stats, ok := t.usage[cit.ID]
	if !ok {
		stats = &model.UsageStats{
			CitationID: cit.ID,
			FirstUsed:  record.RecordedAt,
			ByKind:     make(map[string]int),
			ByContext:  make(map[string]int),
		}
		t.usage[cit.ID] = stats
	}

	stats.ReferenceCount++
	stats.LastUsed = record.RecordedAt
	stats.ByKind[string(cit.Kind)]++
	if cit.Context != "" {
		stats.ByContext[string(cit.Context)]++
	}
	stats.MeanConfidence += (record.Confidence - stats.MeanConfidence) / float64(stats.ReferenceCount)
}

// AddRelationship records a directed, typed edge between two citations.
// Creation is idempotent on (source, target, kind): repeating the call
// returns the existing edge with created=false. The edge is mirrored
// onto both endpoints' stored relationship lists when they are tracked.
func (t *Tracker) AddRelationship(sourceID, targetID string, kind model.RelationshipKind, strength, confidence float64, createdBy string) (model.CitationRelationship, bool, error) {
	if sourceID == "" || targetID == "" {
		return model.CitationRelationship{}, false, fmt.Errorf("add relationship: both endpoints required")
	}
	if sourceID == targetID {
		return model.CitationRelationship{}, false, fmt.Errorf("add relationship: citation %s cannot relate to itself", sourceID)
	}
	if !kind.Valid() {
		return model.CitationRelationship{}, false, fmt.Errorf("add relationship: unknown kind %q", kind)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := relKey(sourceID, targetID, kind)
	if idx, ok := t.relIndex[key]; ok {
		return t.relationships[idx], false, nil
	}

	rel := model.CitationRelationship{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		TargetID:   targetID,
		Kind:       kind,
		Strength:   model.Clamp01(strength),
		Confidence: model.Clamp01(confidence),
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
	}
	t.relIndex[key] = len(t.relationships)
	t.relationships = append(t.relationships, rel)

	t.mirrorRelationship(sourceID, rel)
	t.mirrorRelationship(targetID, rel)

	return rel, true, nil
}

// RemoveRelationship deletes the edge identified by (source, target,
// kind) and unmirrors it from both endpoints.
func (t *Tracker) RemoveRelationship(sourceID, targetID string, kind model.RelationshipKind) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := relKey(sourceID, targetID, kind)
	idx, ok := t.relIndex[key]
	if !ok {
		return fmt.Errorf("remove relationship: no %s edge from %s to %s", kind, sourceID, targetID)
	}

	removed := t.relationships[idx]
	t.relationships = append(t.relationships[:idx], t.relationships[idx+1:]...)
	delete(t.relIndex, key)
	for k, i := range t.relIndex {
		if i > idx {
			t.relIndex[k] = i - 1
		}
	}

	t.unmirrorRelationship(sourceID, removed.ID)
	t.unmirrorRelationship(targetID, removed.ID)
	return nil
}

// mirrorRelationship appends the edge to a tracked citation's own
// relationship list. Caller holds the lock.
func (t *Tracker) mirrorRelationship(citationID string, rel model.CitationRelationship) {
	cit, ok := t.citations[citationID]
	if !ok {
		return
	}
	cit.Relationships = append(cit.Relationships, rel)
	t.citations[citationID] = cit
}

func (t *Tracker) unmirrorRelationship(citationID, relID string) {
	cit, ok := t.citations[citationID]
	if !ok {
		return
	}
	kept := cit.Relationships[:0]
	for _, r := range cit.Relationships {
		if r.ID != relID {
			kept = append(kept, r)
		}
	}
	cit.Relationships = kept
	t.citations[citationID] = cit
}

// History returns a copy of the provenance records for a citation,
// oldest first.
func (t *Tracker) History(citationID string) []model.ProvenanceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	records := t.events[citationID]
	out := make([]model.ProvenanceRecord, len(records))
	copy(out, records)
	return out
}

// Usage returns a copy of the usage statistics for a citation.
func (t *Tracker) Usage(citationID string) (model.UsageStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats, ok := t.usage[citationID]
	if !ok {
		return model.UsageStats{}, false
	}
	out := *stats
	out.ByKind = copyCounts(stats.ByKind)
	out.ByContext = copyCounts(stats.ByContext)
	return out, true
}

// Relationships returns every edge touching the citation.
func (t *Tracker) Relationships(citationID string) []model.CitationRelationship {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []model.CitationRelationship
	for _, rel := range t.relationships {
		if rel.SourceID == citationID || rel.TargetID == citationID {
			out = append(out, rel)
		}
	}
	return out
}

// Citations returns the tracked citations in first-seen order.
func (t *Tracker) Citations() []model.Citation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Citation, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.citations[id])
	}
	return out
}

func relKey(sourceID, targetID string, kind model.RelationshipKind) string {
	return sourceID + "|" + targetID + "|" + string(kind)
}

func copyCounts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
