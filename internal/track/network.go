package track

import (
	"fmt"
	"time"

	"github.com/scholiast/scholia/internal/model"
)

// influenceWeights scores how much each incoming relationship kind
// contributes to a citation's influence.
var influenceWeights = map[model.RelationshipKind]float64{
	model.RelSupports:    1.0,
	model.RelElaborates:  0.8,
	model.RelReferences:  0.6,
	model.RelContradicts: 0.3,
}

// BuildNetwork snapshots the tracked citations and relationships into a
// graph with density, degree centrality, and connected-component
// community labels. Only edges with both endpoints tracked appear.
func (t *Tracker) BuildNetwork() *model.CitationNetwork {
	t.mu.RLock()
	defer t.mu.RUnlock()

	citations := make([]model.Citation, 0, len(t.order))
	known := make(map[string]bool, len(t.order))
	for _, id := range t.order {
		citations = append(citations, t.citations[id])
		known[id] = true
	}

	var edges []model.CitationRelationship
	for _, rel := range t.relationships {
		if known[rel.SourceID] && known[rel.TargetID] {
			edges = append(edges, rel)
		}
	}

	net := &model.CitationNetwork{
		Citations:     citations,
		Relationships: edges,
		BuiltAt:       time.Now().UTC(),
	}

	n := len(citations)
	if n == 0 {
		return net
	}

	// Parallel edges of different kinds count as one connection.
	neighbors := make(map[string]map[string]bool, n)
	for _, rel := range edges {
		if neighbors[rel.SourceID] == nil {
			neighbors[rel.SourceID] = make(map[string]bool)
		}
		if neighbors[rel.TargetID] == nil {
			neighbors[rel.TargetID] = make(map[string]bool)
		}
		neighbors[rel.SourceID][rel.TargetID] = true
		neighbors[rel.TargetID][rel.SourceID] = true
	}

	if n > 1 {
		connections := 0
		for _, set := range neighbors {
			connections += len(set)
		}
		// Each connection was counted from both ends.
		net.Density = float64(connections) / float64(n*(n-1))

		net.Centrality = make(map[string]float64, n)
		for _, id := range t.order {
			net.Centrality[id] = float64(len(neighbors[id])) / float64(n-1)
		}
	}

	net.Communities = labelCommunities(t.order, neighbors)
	return net
}

// labelCommunities assigns connected-component labels by breadth-first
// search, numbering components in first-seen order.
func labelCommunities(order []string, neighbors map[string]map[string]bool) map[string]int {
	labels := make(map[string]int, len(order))
	next := 0
	for _, start := range order {
		if _, seen := labels[start]; seen {
			continue
		}
		labels[start] = next
		queue := []string{start}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for neighbor := range neighbors[id] {
				if _, seen := labels[neighbor]; seen {
					continue
				}
				labels[neighbor] = next
				queue = append(queue, neighbor)
			}
		}
		next++
	}
	return labels
}

// Impact computes a usage and influence report for one citation over a
// trailing window of days. A non-positive window covers all history.
func (t *Tracker) Impact(citationID string, windowDays int) (*model.ImpactReport, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.citations[citationID]; !ok {
		return nil, fmt.Errorf("impact: citation %s not tracked", citationID)
	}

	now := time.Now().UTC()
	var cutoff time.Time
	if windowDays > 0 {
		cutoff = now.AddDate(0, 0, -windowDays)
	}

	var events []model.ProvenanceRecord
	for _, r := range t.events[citationID] {
		if r.RecordedAt.After(cutoff) {
			events = append(events, r)
		}
	}

	report := &model.ImpactReport{
		CitationID: citationID,
		WindowDays: windowDays,
		EventCount: len(events),
		ComputedAt: now,
	}

	validations := 0
	var confSum float64
	for _, r := range events {
		switch r.Event {
		case model.EventReferenced:
			report.ReferenceCount++
		case model.EventValidated:
			validations++
		}
		confSum += r.Confidence
	}
	if len(events) > 0 {
		report.MeanConfidence = confSum / float64(len(events))
		report.ValidationRate = float64(validations) / float64(len(events))
	}

	var incoming float64
	for _, rel := range t.relationships {
		if rel.SourceID != citationID && rel.TargetID != citationID {
			continue
		}
		report.RelationshipCount++
		if rel.TargetID == citationID {
			incoming += influenceWeights[rel.Kind] * rel.Strength * rel.Confidence
		}
	}

	report.ImpactScore = model.Clamp01(
		0.4*capped(float64(report.ReferenceCount)/10) +
			0.3*capped(float64(report.RelationshipCount)/5) +
			0.3*report.MeanConfidence*report.ValidationRate)
	report.InfluenceScore = model.Clamp01(incoming / 5)

	return report, nil
}

func capped(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
