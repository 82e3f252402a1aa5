// Package compose assembles retrieved passages into a budgeted context
// window. Four strategies are available; all of them respect the token
// budget, keep higher-relevance material when passages overlap, and
// report whether anything was dropped.
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/scholiast/scholia/internal/cache"
	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/similarity"
	"github.com/scholiast/scholia/internal/tokens"
)

// groupSeparator joins passages and groups in the composed text.
const groupSeparator = "\n\n"

// Composer builds context windows from ranked passages.
type Composer struct {
	cfg     model.ComposerConfig
	counter tokens.Counter
	store   cache.Cache
}

// New creates a composer. store may be nil to disable result caching.
func New(cfg model.ComposerConfig, counter tokens.Counter, store cache.Cache) (*Composer, error) {
	if counter == nil {
		return nil, fmt.Errorf("composer needs a token counter")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Composer{cfg: cfg, counter: counter, store: store}, nil
}

// Compose assembles the passages into a context for the query. An empty
// passage list yields an empty result, not an error.
func (c *Composer) Compose(ctx context.Context, query string, passages []model.Passage) (*model.ContextResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(passages) == 0 {
		return &model.ContextResult{
			Query:    query,
			Strategy: c.cfg.Strategy,
		}, nil
	}
	for i, p := range passages {
		if p.ID == "" {
			return nil, fmt.Errorf("passage %d has no identifier", i)
		}
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("passage %s has no text", p.ID)
		}
	}

	key := c.cacheKey(query, passages)
	if c.store != nil {
		if data, found := c.store.Get(key); found {
			var cached model.ContextResult
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
			// Unreadable entries are replaced below
		}
	}

	var (
		groups    []model.PassageGroup
		truncated bool
		err       error
	)
	switch c.cfg.Strategy {
	case model.StrategyStitching:
		groups, truncated, err = c.stitch(passages)
	case model.StrategyMapReduce:
		groups, truncated, err = c.mapReduce(passages)
	case model.StrategySemantic:
		groups, truncated, err = c.semantic(passages)
	case model.StrategySimple:
		groups, truncated, err = c.simple(passages)
	default:
		err = fmt.Errorf("unknown composition strategy %q", c.cfg.Strategy)
	}
	if err != nil {
		return nil, err
	}

	text := renderGroups(groups)

	// Counting schemes that merge tokens across passage boundaries can
	// land slightly over budget; trim until the final text fits.
	target := c.cfg.MaxTokens
	for c.counter.Count(text) > c.cfg.MaxTokens && target > 0 {
		text = c.counter.Truncate(text, target)
		target--
		truncated = true
	}

	result := &model.ContextResult{
		Text:        text,
		TotalTokens: c.counter.Count(text),
		Query:       query,
		Groups:      groups,
		Truncated:   truncated,
		Strategy:    c.cfg.Strategy,
	}
	result.Citations = c.buildCitations(groups, passages, text)

	if c.store != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = c.store.Set(key, data, 0)
		}
	}
	return result, nil
}

// cacheKey derives a content hash from everything that affects the
// composition outcome.
func (c *Composer) cacheKey(query string, passages []model.Passage) string {
	parts := make([]string, 0, len(passages)*2+4)
	parts = append(parts,
		query,
		string(c.cfg.Strategy),
		strconv.Itoa(c.cfg.MaxTokens),
		c.cfg.CitationStyle,
	)
	for _, p := range passages {
		parts = append(parts, p.ID, p.Text, strconv.FormatFloat(p.Relevance, 'f', 6, 64))
	}
	return cache.Key(parts...)
}

// dedupe drops passages whose text overlaps an already-kept passage
// beyond the overlap threshold. Passages are considered in descending
// relevance, so the higher-relevance side of an overlap always
// survives.
func (c *Composer) dedupe(passages []model.Passage) []model.Passage {
	sorted := sortByRelevance(passages)

	kept := make([]model.Passage, 0, len(sorted))
	normalized := make([]string, 0, len(sorted))
	for _, p := range sorted {
		norm := similarity.Normalize(p.Text)
		dup := false
		for _, existing := range normalized {
			if similarity.Ratio(norm, existing) > c.cfg.OverlapThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, p)
			normalized = append(normalized, norm)
		}
	}
	return kept
}

// fillGroups greedily appends groups until the budget runs out. The
// first group that does not fit is cut down passage by passage, with
// the last passage word-truncated; everything after it is dropped.
func (c *Composer) fillGroups(groups []model.PassageGroup, budget int) ([]model.PassageGroup, bool) {
	var included []model.PassageGroup
	var parts []string
	truncated := false

	for _, g := range groups {
		whole := parts
		for _, p := range g.Passages {
			whole = append(whole, p.Text)
		}
		if c.countJoined(whole) <= budget {
			parts = whole
			included = append(included, g)
			continue
		}

		truncated = true
		var taken []model.Passage
		for _, p := range g.Passages {
			if c.countJoined(append(parts, p.Text)) <= budget {
				parts = append(parts, p.Text)
				taken = append(taken, p)
				continue
			}
			remaining := budget - c.countJoined(parts)
			frag := c.counter.Truncate(p.Text, remaining)
			if strings.TrimSpace(frag) != "" {
				clipped := p
				clipped.Text = frag
				parts = append(parts, frag)
				taken = append(taken, clipped)
			}
			break
		}
		if len(taken) > 0 {
			cut := g
			cut.Passages = taken
			cut.TokenCount = c.counter.Count(renderPassages(taken))
			included = append(included, cut)
		}
		break
	}

	return included, truncated
}

// countJoined counts the tokens of the given parts joined as they will
// appear in the final text.
func (c *Composer) countJoined(parts []string) int {
	if len(parts) == 0 {
		return 0
	}
	return c.counter.Count(strings.Join(parts, groupSeparator))
}

// newGroup builds a group over the given passages, computing its token
// count and the mean coherence of consecutive members.
func (c *Composer) newGroup(passages []model.Passage, topic string) model.PassageGroup {
	coherence := 1.0
	if len(passages) > 1 {
		total := 0.0
		for i := 1; i < len(passages); i++ {
			total += c.coherenceBetween(passages[i-1], passages[i])
		}
		coherence = total / float64(len(passages)-1)
	}
	return model.PassageGroup{
		Passages:   passages,
		Coherence:  coherence,
		Topic:      topic,
		TokenCount: c.counter.Count(renderPassages(passages)),
	}
}

// coherenceBetween blends positional adjacency with lexical overlap.
// Adjacent positions in the same document dominate; otherwise shared
// vocabulary has to carry the score.
func (c *Composer) coherenceBetween(a, b model.Passage) float64 {
	overlap := similarity.WordOverlap(a.Text, b.Text)

	if a.DocumentID != b.DocumentID || a.DocumentID == "" {
		return overlap
	}

	gap := b.Position - a.Position
	if gap < 0 {
		gap = -gap
	}
	positional := 0.0
	if gap > 0 {
		positional = 1.0 / float64(gap)
	}
	return 0.6*positional + 0.4*overlap
}

// topicFor labels a group after its leading passage.
func topicFor(p model.Passage) string {
	if p.SourceTitle != "" {
		return p.SourceTitle
	}
	return p.DocumentID
}

// renderPassages joins passage texts the way the final context does.
func renderPassages(passages []model.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Text
	}
	return strings.Join(parts, groupSeparator)
}

// renderGroups joins all group passages into the final context text.
func renderGroups(groups []model.PassageGroup) string {
	var parts []string
	for _, g := range groups {
		for _, p := range g.Passages {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, groupSeparator)
}

// sortByRelevance returns a copy ordered by descending relevance.
// Ties keep their input order.
func sortByRelevance(passages []model.Passage) []model.Passage {
	sorted := make([]model.Passage, len(passages))
	copy(sorted, passages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Relevance > sorted[j].Relevance
	})
	return sorted
}

// maxRelevance returns the highest passage relevance in a group.
func maxRelevance(g model.PassageGroup) float64 {
	best := 0.0
	for _, p := range g.Passages {
		if p.Relevance > best {
			best = p.Relevance
		}
	}
	return best
}

// meanRelevance returns the average passage relevance in a group.
func meanRelevance(g model.PassageGroup) float64 {
	if len(g.Passages) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range g.Passages {
		total += p.Relevance
	}
	return total / float64(len(g.Passages))
}
