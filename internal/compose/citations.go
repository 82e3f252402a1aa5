package compose

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/similarity"
)

// buildCitations produces one formatted citation per source document
// represented in the composed groups. Each citation is scored by how
// much of the document's candidate material made it into the composed
// text and ordered by that score; fully represented documents tie and
// keep their order of first appearance, so footnote numbers still read
// top to bottom in the common case.
func (c *Composer) buildCitations(groups []model.PassageGroup, candidates []model.Passage, text string) []model.CitationContext {
	type docInfo struct {
		first    model.Passage
		maxRel   float64
		position int
	}
	var order []string
	info := make(map[string]*docInfo)

	for _, g := range groups {
		for _, p := range g.Passages {
			if p.DocumentID == "" {
				continue
			}
			entry, seen := info[p.DocumentID]
			if !seen {
				info[p.DocumentID] = &docInfo{
					first:    p,
					maxRel:   p.Relevance,
					position: strings.Index(text, p.Text),
				}
				order = append(order, p.DocumentID)
				continue
			}
			if p.Relevance > entry.maxRel {
				entry.maxRel = p.Relevance
			}
		}
	}

	// The candidate list still holds the full passage texts, so a
	// document whose passages were clipped or dropped scores below one.
	docText := make(map[string][]string, len(info))
	for _, p := range candidates {
		if _, cited := info[p.DocumentID]; cited {
			docText[p.DocumentID] = append(docText[p.DocumentID], p.Text)
		}
	}
	relevance := make(map[string]float64, len(info))
	for docID := range info {
		relevance[docID] = similarity.Coverage(strings.Join(docText[docID], " "), text)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return relevance[order[i]] > relevance[order[j]]
	})

	limit := len(order)
	if c.cfg.MaxCitations > 0 && limit > c.cfg.MaxCitations {
		limit = c.cfg.MaxCitations
	}

	now := time.Now()
	citations := make([]model.CitationContext, 0, limit)
	for i, docID := range order[:limit] {
		entry := info[docID]
		cit := model.Citation{
			ID:              uuid.NewString(),
			Text:            excerpt(entry.first.Text, 20),
			Kind:            model.KindReference,
			DocumentID:      docID,
			SourceTitle:     entry.first.SourceTitle,
			SourceAuthor:    entry.first.SourceAuthor,
			SourceReference: metadataReference(entry.first),
			Confidence:      model.Clamp01(entry.maxRel),
			CreatedAt:       now,
		}
		citations = append(citations, model.CitationContext{
			Citation:  cit,
			Relevance: relevance[docID],
			Position:  entry.position,
			Formatted: FormatCitation(cit, c.cfg.CitationStyle, i+1),
		})
	}
	return citations
}

// metadataReference pulls a source locator out of passage metadata when
// the retrieval backend provided one.
func metadataReference(p model.Passage) string {
	for _, key := range []string{"reference", "locator"} {
		if v, ok := p.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// excerpt returns the first n words of s.
func excerpt(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}

// FormatCitation renders a citation in the named style. The ordinal is
// used by the footnote style.
func FormatCitation(c model.Citation, style string, ordinal int) string {
	switch style {
	case "modern":
		return formatModern(c)
	case "footnote":
		return fmt.Sprintf("[%d] %s.", ordinal, classicalBody(c))
	default:
		return classicalBody(c)
	}
}

// classicalBody renders "Author, Locator" in the classical manner,
// e.g. "Plato, Republic 514a". Missing pieces fall away.
func classicalBody(c model.Citation) string {
	locator := c.SourceReference
	if locator == "" {
		locator = c.SourceTitle
	}
	switch {
	case c.SourceAuthor != "" && locator != "":
		return c.SourceAuthor + ", " + locator
	case locator != "":
		return locator
	case c.SourceAuthor != "":
		return c.SourceAuthor
	}
	return "unattributed source"
}

// formatModern renders an author-title citation with translator and
// edition when known.
func formatModern(c model.Citation) string {
	var b strings.Builder
	if c.SourceAuthor != "" {
		b.WriteString(c.SourceAuthor)
		b.WriteString(". ")
	}
	switch {
	case c.SourceReference != "":
		b.WriteString(c.SourceReference)
	case c.SourceTitle != "":
		b.WriteString(c.SourceTitle)
	}
	b.WriteString(".")
	if c.SourceTranslator != "" {
		fmt.Fprintf(&b, " Trans. %s.", c.SourceTranslator)
	}
	if c.SourceEdition != "" {
		fmt.Fprintf(&b, " %s.", c.SourceEdition)
	}
	return strings.TrimSpace(b.String())
}

// RenderAttribution renders the source list handed to the response
// assembler: one formatted citation per line, duplicates removed,
// order preserved.
func RenderAttribution(citations []model.CitationContext) string {
	seen := make(map[string]bool)
	var lines []string
	for _, cc := range citations {
		if cc.Formatted == "" || seen[cc.Formatted] {
			continue
		}
		seen[cc.Formatted] = true
		lines = append(lines, cc.Formatted)
	}
	return strings.Join(lines, "\n")
}
