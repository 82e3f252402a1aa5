package model

import (
	"fmt"
	"time"
)

// CitationKind classifies how a span of text relates to its source.
type CitationKind string

const (
	KindDirectQuote CitationKind = "direct_quote"
	KindParaphrase  CitationKind = "paraphrase"
	KindReference   CitationKind = "reference"
	KindAllusion    CitationKind = "allusion"
)

// RhetoricalContext classifies the argumentative role a citation plays in
// the surrounding text.
type RhetoricalContext string

const (
	ContextArgument        RhetoricalContext = "argument"
	ContextCounterargument RhetoricalContext = "counterargument"
	ContextExample         RhetoricalContext = "example"
	ContextDefinition      RhetoricalContext = "definition"
	ContextExplanation     RhetoricalContext = "explanation"
)

// Citation is a claimed attribution of a span of generated or retrieved text
// to a source work. Created by the extractor or carried over from retrieval;
// mutated by the validator (confidence) and the tracker (relationships);
// never destroyed within a session — superseded versions survive as
// provenance records.
type Citation struct {
	ID      string            `json:"id"`
	Text    string            `json:"text"`
	Kind    CitationKind      `json:"kind"`
	Context RhetoricalContext `json:"context,omitempty"`

	DocumentID       string `json:"document_id,omitempty"`
	SourceTitle      string `json:"source_title,omitempty"`
	SourceAuthor     string `json:"source_author,omitempty"`
	SourceEdition    string `json:"source_edition,omitempty"`
	SourceTranslator string `json:"source_translator,omitempty"`

	// SourceReference is a free-form locator into the source work,
	// e.g. "Republic 514a" or "Nicomachean Ethics 1094a1".
	SourceReference string `json:"source_reference,omitempty"`

	StartOffset *int `json:"start_offset,omitempty"`
	EndOffset   *int `json:"end_offset,omitempty"`

	Confidence float64 `json:"confidence"`

	Relationships []CitationRelationship `json:"relationships,omitempty"`

	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks the citation invariants: confidence within [0,1] and,
// when both offsets are present, end strictly after start.
func (c *Citation) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("citation has no identifier")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("citation %s: confidence %.3f outside [0,1]", c.ID, c.Confidence)
	}
	if c.StartOffset != nil && c.EndOffset != nil && *c.EndOffset <= *c.StartOffset {
		return fmt.Errorf("citation %s: end offset %d not after start offset %d", c.ID, *c.EndOffset, *c.StartOffset)
	}
	return nil
}

// ClampConfidence forces the confidence into [0,1].
func (c *Citation) ClampConfidence() {
	c.Confidence = Clamp01(c.Confidence)
}

// HasAttribution reports whether the citation names its source by author
// or title.
func (c *Citation) HasAttribution() bool {
	return c.SourceAuthor != "" || c.SourceTitle != ""
}

// Clamp01 clamps v into the closed interval [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
