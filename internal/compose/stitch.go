package compose

import (
	"sort"

	"github.com/scholiast/scholia/internal/model"
)

// stitch implements the default strategy: passages are deduped, grouped
// by document, clustered into coherent runs, and appended in relevance
// order until the budget is spent.
func (c *Composer) stitch(passages []model.Passage) ([]model.PassageGroup, bool, error) {
	groups := c.buildStitchGroups(passages)
	included, truncated := c.fillGroups(groups, c.cfg.MaxTokens)
	return included, truncated, nil
}

// buildStitchGroups produces document-aware groups ordered by their
// best passage's relevance. Within a document, passages run in
// position order and split wherever consecutive coherence drops below
// the threshold.
func (c *Composer) buildStitchGroups(passages []model.Passage) []model.PassageGroup {
	kept := c.dedupe(passages)

	byDoc := make(map[string][]model.Passage)
	var docOrder []string
	for _, p := range kept {
		if _, seen := byDoc[p.DocumentID]; !seen {
			docOrder = append(docOrder, p.DocumentID)
		}
		byDoc[p.DocumentID] = append(byDoc[p.DocumentID], p)
	}

	var groups []model.PassageGroup
	for _, docID := range docOrder {
		docPassages := byDoc[docID]
		sort.SliceStable(docPassages, func(i, j int) bool {
			return docPassages[i].Position < docPassages[j].Position
		})

		run := []model.Passage{docPassages[0]}
		for _, p := range docPassages[1:] {
			if c.coherenceBetween(run[len(run)-1], p) >= c.cfg.CoherenceThreshold {
				run = append(run, p)
				continue
			}
			groups = append(groups, c.newGroup(run, topicFor(run[0])))
			run = []model.Passage{p}
		}
		groups = append(groups, c.newGroup(run, topicFor(run[0])))
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return maxRelevance(groups[i]) > maxRelevance(groups[j])
	})
	return groups
}

// mapReduce shards the deduped passages, stitches each shard under a
// divided budget, and re-fills the winners under the full budget.
// Useful when the passage list dwarfs the budget.
func (c *Composer) mapReduce(passages []model.Passage) ([]model.PassageGroup, bool, error) {
	kept := c.dedupe(passages)

	shardSize := c.cfg.MaxTokens / 400
	if shardSize < 5 {
		shardSize = 5
	}
	if shardSize > 20 {
		shardSize = 20
	}
	if len(kept) <= shardSize {
		return c.stitch(kept)
	}

	var shards [][]model.Passage
	for start := 0; start < len(kept); start += shardSize {
		end := start + shardSize
		if end > len(kept) {
			end = len(kept)
		}
		shards = append(shards, kept[start:end])
	}

	subBudget := c.cfg.MaxTokens / len(shards)
	if subBudget < 1 {
		subBudget = 1
	}

	// Map: each shard keeps only what survives its share of the budget.
	truncated := false
	var merged []model.PassageGroup
	for _, shard := range shards {
		picked, shardTruncated := c.fillGroups(c.buildStitchGroups(shard), subBudget)
		truncated = truncated || shardTruncated
		merged = append(merged, picked...)
	}

	// Reduce: the surviving groups compete for the full budget.
	sort.SliceStable(merged, func(i, j int) bool {
		return maxRelevance(merged[i]) > maxRelevance(merged[j])
	})
	final, finalTruncated := c.fillGroups(merged, c.cfg.MaxTokens)
	return final, truncated || finalTruncated, nil
}
