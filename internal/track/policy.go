package track

import (
	"fmt"
	"strings"

	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/similarity"
)

// RelationshipPolicy proposes a typed relationship between two
// citations, scored in [0,1].
type RelationshipPolicy interface {
	Relate(a, b *model.Citation) (model.RelationshipKind, float64)
	Name() string
}

// SimilarityPolicy relates citations by text similarity plus shared
// source metadata. Citations of the same author or work support each
// other; unrelated sources merely reference.
type SimilarityPolicy struct{}

func (SimilarityPolicy) Name() string { return "similarity" }

func (SimilarityPolicy) Relate(a, b *model.Citation) (model.RelationshipKind, float64) {
	score := 0.7 * similarity.Ratio(similarity.Normalize(a.Text), similarity.Normalize(b.Text))

	sameAuthor := a.SourceAuthor != "" &&
		similarity.Normalize(a.SourceAuthor) == similarity.Normalize(b.SourceAuthor)
	sameWork := a.SourceTitle != "" && normalizeWork(a.SourceTitle) == normalizeWork(b.SourceTitle)

	if sameAuthor {
		score += 0.15
	}
	if sameWork {
		score += 0.15
	}

	kind := model.RelReferences
	if sameAuthor || sameWork {
		kind = model.RelSupports
	}
	return kind, model.Clamp01(score)
}

// policyFor resolves the configured policy name. The "none" policy
// disables detection and returns a nil policy.
func policyFor(name string) (RelationshipPolicy, error) {
	switch name {
	case "", "similarity":
		return SimilarityPolicy{}, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown relationship policy %q", name)
	}
}

// DetectRelationships proposes and records edges between every pair of
// citations the configured policy scores above the threshold. Returns
// only the newly created edges.
func (t *Tracker) DetectRelationships(citations []model.Citation) ([]model.CitationRelationship, error) {
	if !t.cfg.AutoDetect {
		return nil, nil
	}
	policy, err := policyFor(t.cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("detect relationships: %w", err)
	}
	if policy == nil {
		return nil, nil
	}

	threshold := t.cfg.AutoDetectThreshold
	var created []model.CitationRelationship
	for i := range citations {
		for j := i + 1; j < len(citations); j++ {
			a, b := &citations[i], &citations[j]
			if a.ID == "" || b.ID == "" || a.ID == b.ID {
				continue
			}
			kind, score := policy.Relate(a, b)
			if score < threshold {
				continue
			}
			confidence := a.Confidence
			if b.Confidence < confidence {
				confidence = b.Confidence
			}
			rel, isNew, err := t.AddRelationship(a.ID, b.ID, kind, score, confidence, policy.Name())
			if err != nil {
				return created, fmt.Errorf("detect relationships: %w", err)
			}
			if isNew {
				created = append(created, rel)
			}
		}
	}
	return created, nil
}

func normalizeWork(title string) string {
	return strings.TrimPrefix(similarity.Normalize(title), "the ")
}
