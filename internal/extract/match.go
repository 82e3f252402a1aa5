package extract

import (
	"strings"

	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/similarity"
)

// matchSources links citations back to documents in the source context.
// Matching runs strongest-signal first: section locators against the
// context's own citation records, then author and title against passage
// metadata, then quoted text against passage bodies. Returns the number
// of citations matched.
func matchSources(citations []model.Citation, source *model.ContextResult, threshold float64) int {
	if source == nil || len(citations) == 0 {
		return 0
	}
	passages := sourcePassages(source)
	if len(passages) == 0 {
		return 0
	}

	matched := 0
	for i := range citations {
		cit := &citations[i]
		switch {
		case matchByLocator(cit, source):
			matched++
		case matchByWork(cit, passages):
			matched++
		case cit.Kind == model.KindDirectQuote && matchByQuote(cit, passages, threshold):
			matched++
		}
	}
	return matched
}

func sourcePassages(source *model.ContextResult) []model.Passage {
	var passages []model.Passage
	for _, g := range source.Groups {
		passages = append(passages, g.Passages...)
	}
	return passages
}

// matchByLocator compares the citation's section locator against the
// locators the composer attached to the context.
func matchByLocator(cit *model.Citation, source *model.ContextResult) bool {
	if cit.SourceReference == "" {
		return false
	}
	want := similarity.Normalize(cit.SourceReference)
	for _, cc := range source.Citations {
		ref := similarity.Normalize(cc.Citation.SourceReference)
		if ref == "" {
			continue
		}
		if ref == want || strings.Contains(ref, want) || strings.Contains(want, ref) {
			adoptSource(cit, cc.Citation)
			return true
		}
	}
	return false
}

// matchByWork matches on the work title, or on the author alone when
// only one source document carries that author.
func matchByWork(cit *model.Citation, passages []model.Passage) bool {
	title := normalizeWork(cit.SourceTitle)
	if title != "" {
		for _, p := range passages {
			if normalizeWork(p.SourceTitle) == title {
				adoptPassage(cit, p)
				return true
			}
		}
	}

	author := similarity.Normalize(cit.SourceAuthor)
	if author == "" {
		return false
	}
	var found *model.Passage
	docs := make(map[string]bool)
	for i := range passages {
		if similarity.Normalize(passages[i].SourceAuthor) != author {
			continue
		}
		docs[passages[i].DocumentID] = true
		if found == nil {
			found = &passages[i]
		}
	}
	// Ambiguous when the author appears in several documents.
	if len(docs) == 1 && found != nil {
		adoptPassage(cit, *found)
		return true
	}
	return false
}

// matchByQuote looks for the quoted words inside the passage bodies.
// Exact containment wins; otherwise the passage covering the largest
// fraction of the quote's words must clear the threshold.
func matchByQuote(cit *model.Citation, passages []model.Passage, threshold float64) bool {
	quote := similarity.Normalize(cit.Text)
	if quote == "" {
		return false
	}

	bestIdx := -1
	bestScore := 0.0
	for i, p := range passages {
		body := similarity.Normalize(p.Text)
		if body == "" {
			continue
		}
		if strings.Contains(body, quote) {
			bestIdx, bestScore = i, 1.0
			break
		}
		if score := similarity.Coverage(quote, body); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 || bestScore < threshold {
		return false
	}

	adoptPassage(cit, passages[bestIdx])
	if bestScore == 1.0 {
		cit.Confidence = model.Clamp01(cit.Confidence + 0.1)
	}
	return true
}

func adoptSource(cit *model.Citation, src model.Citation) {
	cit.DocumentID = src.DocumentID
	if cit.SourceAuthor == "" {
		cit.SourceAuthor = src.SourceAuthor
	}
	if cit.SourceTitle == "" {
		cit.SourceTitle = src.SourceTitle
	}
	if cit.SourceEdition == "" {
		cit.SourceEdition = src.SourceEdition
	}
	if cit.SourceTranslator == "" {
		cit.SourceTranslator = src.SourceTranslator
	}
}

func adoptPassage(cit *model.Citation, p model.Passage) {
	cit.DocumentID = p.DocumentID
	if cit.SourceAuthor == "" {
		cit.SourceAuthor = p.SourceAuthor
	}
	if cit.SourceTitle == "" {
		cit.SourceTitle = p.SourceTitle
	}
}

func normalizeWork(title string) string {
	return strings.TrimPrefix(similarity.Normalize(title), "the ")
}
