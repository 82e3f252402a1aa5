package model

import "time"

// EventKind names a citation lifecycle event.
type EventKind string

const (
	EventCreated    EventKind = "created"
	EventExtracted  EventKind = "extracted"
	EventValidated  EventKind = "validated"
	EventReferenced EventKind = "referenced"
	EventModified   EventKind = "modified"
	EventLinked     EventKind = "linked"
	EventUnlinked   EventKind = "unlinked"
)

// Valid reports whether the event kind is one of the known values.
func (e EventKind) Valid() bool {
	switch e {
	case EventCreated, EventExtracted, EventValidated, EventReferenced,
		EventModified, EventLinked, EventUnlinked:
		return true
	}
	return false
}

// SourceKind names the pipeline stage (or external actor) that produced
// a provenance event.
type SourceKind string

const (
	SourceRetrieval  SourceKind = "retrieval"
	SourceGeneration SourceKind = "generation"
	SourceExtraction SourceKind = "extraction"
	SourceValidation SourceKind = "validation"
	SourceTracking   SourceKind = "tracking"
	SourceUser       SourceKind = "user"
)

// Valid reports whether the source kind is one of the known values.
func (s SourceKind) Valid() bool {
	switch s {
	case SourceRetrieval, SourceGeneration, SourceExtraction,
		SourceValidation, SourceTracking, SourceUser:
		return true
	}
	return false
}

// FieldChange records one field-level difference between two citation states.
type FieldChange struct {
	Field    string `json:"field"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// ProvenanceRecord is one immutable tracking event for a citation.
// Records are append-only per citation, capped at a configured maximum with
// oldest-first eviction.
type ProvenanceRecord struct {
	ID         string     `json:"id"`
	CitationID string     `json:"citation_id"`
	Event      EventKind  `json:"event"`
	Source     SourceKind `json:"source"`
	Processor  string     `json:"processor"`
	Confidence float64    `json:"confidence"` // Citation confidence at event time

	Changes []FieldChange  `json:"changes,omitempty"`
	Context map[string]any `json:"context,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// UsageStats accumulates per-citation usage counters. Updated only on
// `referenced` events.
type UsageStats struct {
	CitationID     string         `json:"citation_id"`
	ReferenceCount int            `json:"reference_count"`
	FirstUsed      time.Time      `json:"first_used"`
	LastUsed       time.Time      `json:"last_used"`
	ByKind         map[string]int `json:"by_kind,omitempty"`
	ByContext      map[string]int `json:"by_context,omitempty"`
	MeanConfidence float64        `json:"mean_confidence"` // Running mean over referenced events
}
