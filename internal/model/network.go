package model

import "time"

// RelationshipKind names a directed, typed edge between two citations.
type RelationshipKind string

const (
	RelSupports    RelationshipKind = "supports"
	RelContradicts RelationshipKind = "contradicts"
	RelElaborates  RelationshipKind = "elaborates"
	RelReferences  RelationshipKind = "references"
)

// Valid reports whether the relationship kind is one of the known values.
func (r RelationshipKind) Valid() bool {
	switch r {
	case RelSupports, RelContradicts, RelElaborates, RelReferences:
		return true
	}
	return false
}

// CitationRelationship is a directed, typed, weighted edge between two
// citations. Creation is idempotent on (source, target, kind) and the edge
// is mirrored under both endpoints' relationship lists.
type CitationRelationship struct {
	ID         string           `json:"id"`
	SourceID   string           `json:"source_id"`
	TargetID   string           `json:"target_id"`
	Kind       RelationshipKind `json:"kind"`
	Strength   float64          `json:"strength"`   // [0,1]
	Confidence float64          `json:"confidence"` // [0,1]
	CreatedBy  string           `json:"created_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// CitationNetwork is a snapshot graph over a citation set with derived
// metrics. Density is 2E/(N(N-1)); centrality is degree/(N-1) per node;
// communities are connected-component labels.
type CitationNetwork struct {
	Citations     []Citation             `json:"citations"`
	Relationships []CitationRelationship `json:"relationships"`
	Density       float64                `json:"density"`
	Centrality    map[string]float64     `json:"centrality,omitempty"`
	Communities   map[string]int         `json:"communities,omitempty"`
	BuiltAt       time.Time              `json:"built_at"`
}

// ImpactReport combines usage volume, relationship count, and quality into
// a per-citation impact assessment over a time window.
type ImpactReport struct {
	CitationID        string    `json:"citation_id"`
	WindowDays        int       `json:"window_days"`
	ReferenceCount    int       `json:"reference_count"`
	RelationshipCount int       `json:"relationship_count"`
	EventCount        int       `json:"event_count"`
	MeanConfidence    float64   `json:"mean_confidence"`
	ValidationRate    float64   `json:"validation_rate"` // Fraction of window events that are validations
	ImpactScore       float64   `json:"impact_score"`    // [0,1]
	InfluenceScore    float64   `json:"influence_score"` // [0,1], from relationship-type weights
	ComputedAt        time.Time `json:"computed_at"`
}
