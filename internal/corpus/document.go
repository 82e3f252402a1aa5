// Package corpus loads and holds the source works that citations are
// checked against: local text files, curated manifests, and fetched
// web pages reduced to readable prose.
package corpus

import (
	"strings"
	"time"
	"unicode"
)

// Document is one source work: its full text plus the scholarly
// metadata needed to attribute citations to it.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	Translator string    `json:"translator,omitempty"`
	Edition    string    `json:"edition,omitempty"`
	URL        string    `json:"url,omitempty"`
	Text       string    `json:"text"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
	Chunks     []Chunk   `json:"-"`
}

// Chunk is a contiguous slice of a document, the unit handed to
// retrieval. Index reflects document order.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

// Rechunk splits the document text into word-bounded chunks, packing
// whole paragraphs together until the budget is reached. Paragraphs
// longer than the budget are split on word boundaries.
func (d *Document) Rechunk(chunkWords int) {
	if chunkWords <= 0 {
		chunkWords = 120
	}

	d.Chunks = d.Chunks[:0]
	var pending []string
	pendingWords := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		d.Chunks = append(d.Chunks, Chunk{
			DocumentID: d.ID,
			Index:      len(d.Chunks),
			Text:       strings.Join(pending, "\n"),
		})
		pending = pending[:0]
		pendingWords = 0
	}

	for _, para := range splitParagraphs(d.Text) {
		words := strings.Fields(para)
		if len(words) > chunkWords {
			flush()
			for i := 0; i < len(words); i += chunkWords {
				end := i + chunkWords
				if end > len(words) {
					end = len(words)
				}
				d.Chunks = append(d.Chunks, Chunk{
					DocumentID: d.ID,
					Index:      len(d.Chunks),
					Text:       strings.Join(words[i:end], " "),
				})
			}
			continue
		}
		if pendingWords+len(words) > chunkWords {
			flush()
		}
		pending = append(pending, para)
		pendingWords += len(words)
	}
	flush()
}

// splitParagraphs breaks text on blank lines, collapsing interior
// whitespace within each paragraph.
func splitParagraphs(text string) []string {
	var paras []string
	for _, raw := range strings.Split(text, "\n\n") {
		if p := strings.Join(strings.Fields(raw), " "); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// DeriveID turns a title, filename, or URL segment into a stable
// lowercase identifier.
func DeriveID(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
