package compose

import (
	"sort"

	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/similarity"
)

// semantic clusters passages by shared vocabulary regardless of source
// document, then spends the budget on the best clusters first.
func (c *Composer) semantic(passages []model.Passage) ([]model.PassageGroup, bool, error) {
	kept := c.dedupe(passages)

	// Greedy clustering: each passage joins the first cluster whose
	// representative it overlaps enough, else starts its own. kept is
	// relevance-ordered, so representatives are the strongest members.
	var clusters [][]model.Passage
	for _, p := range kept {
		placed := false
		for i, cluster := range clusters {
			if similarity.WordOverlap(p.Text, cluster[0].Text) >= c.cfg.CoherenceThreshold {
				clusters[i] = append(cluster, p)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []model.Passage{p})
		}
	}

	groups := make([]model.PassageGroup, 0, len(clusters))
	for _, cluster := range clusters {
		groups = append(groups, c.newGroup(cluster, topicFor(cluster[0])))
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return meanRelevance(groups[i]) > meanRelevance(groups[j])
	})

	included, truncated := c.fillGroups(groups, c.cfg.MaxTokens)
	return included, truncated, nil
}

// simple concatenates passages in relevance order with no grouping.
// The first passage that does not fit is word-truncated, and the
// fragment is kept only when it still carries meaningful content.
func (c *Composer) simple(passages []model.Passage) ([]model.PassageGroup, bool, error) {
	sorted := sortByRelevance(passages)

	var taken []model.Passage
	var parts []string
	truncated := false
	for _, p := range sorted {
		if c.countJoined(append(parts, p.Text)) <= c.cfg.MaxTokens {
			parts = append(parts, p.Text)
			taken = append(taken, p)
			continue
		}
		remaining := c.cfg.MaxTokens - c.countJoined(parts)
		frag := c.counter.Truncate(p.Text, remaining)
		if frag != "" && c.counter.Count(frag) >= c.cfg.MinPassageTokens {
			clipped := p
			clipped.Text = frag
			taken = append(taken, clipped)
		}
		truncated = true
		break
	}

	if len(taken) == 0 {
		return nil, truncated, nil
	}
	return []model.PassageGroup{c.newGroup(taken, "")}, truncated, nil
}
