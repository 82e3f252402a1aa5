package model

// Passage is one ranked text chunk supplied by a retrieval backend.
// The composer treats it as opaque input and never calls back upstream.
type Passage struct {
	ID           string         `json:"passage_id"`
	DocumentID   string         `json:"document_id"`
	Text         string         `json:"text"`
	Position     int            `json:"position"`        // Ordinal position within the parent document
	Relevance    float64        `json:"relevance_score"` // Retrieval score, higher is better
	SourceTitle  string         `json:"source_title,omitempty"`
	SourceAuthor string         `json:"source_author,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Strategy selects how the composer assembles passages under the token budget.
type Strategy string

const (
	StrategyStitching Strategy = "stitching"  // Document-aware grouping with overlap dedupe (default)
	StrategyMapReduce Strategy = "map_reduce" // Sharded stitching under divided sub-budgets
	StrategySemantic  Strategy = "semantic"   // Greedy similarity clustering
	StrategySimple    Strategy = "simple"     // Relevance-ordered concatenation
)

// Valid reports whether the strategy is one of the known values.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyStitching, StrategyMapReduce, StrategySemantic, StrategySimple:
		return true
	}
	return false
}

// PassageGroup is an ordered, coherent cluster of passages assembled by the
// composer. Owned exclusively by the ContextResult that contains it.
type PassageGroup struct {
	Passages   []Passage `json:"passages"`
	Coherence  float64   `json:"coherence"` // Mean pairwise coherence of consecutive members
	Topic      string    `json:"topic,omitempty"`
	TokenCount int       `json:"token_count"`
}

// CitationContext pairs a citation with its relevance to the composed text
// and its approximate character position within it.
type CitationContext struct {
	Citation  Citation `json:"citation"`
	Relevance float64  `json:"relevance"`
	Position  int      `json:"position"` // Character offset in the composed text, -1 if unknown
	Formatted string   `json:"formatted"`
}

// ContextResult is the output of one composition call. Immutable once
// produced; cached by a content-derived key.
type ContextResult struct {
	Text        string            `json:"text"`
	TotalTokens int               `json:"total_tokens"`
	Query       string            `json:"query"`
	Groups      []PassageGroup    `json:"groups"`
	Citations   []CitationContext `json:"citations,omitempty"`
	Truncated   bool              `json:"truncated"`
	Strategy    Strategy          `json:"strategy"`
}

// DocumentIDs returns the distinct parent-document identifiers represented
// in the composed groups, in first-seen order.
func (r *ContextResult) DocumentIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, g := range r.Groups {
		for _, p := range g.Passages {
			if p.DocumentID != "" && !seen[p.DocumentID] {
				seen[p.DocumentID] = true
				ids = append(ids, p.DocumentID)
			}
		}
	}
	return ids
}
