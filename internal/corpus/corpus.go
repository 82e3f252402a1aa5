package corpus

// Corpus is an in-memory collection of source documents. A Loader
// builds it once; afterwards it is read-only and safe for concurrent
// reads.
type Corpus struct {
	docs  map[string]*Document
	order []string
}

// New creates an empty corpus.
func New() *Corpus {
	return &Corpus{docs: make(map[string]*Document)}
}

// Add inserts a document. On a duplicate ID the later document wins
// and keeps its original position.
func (c *Corpus) Add(doc *Document) {
	if doc == nil || doc.ID == "" {
		return
	}
	if _, exists := c.docs[doc.ID]; !exists {
		c.order = append(c.order, doc.ID)
	}
	c.docs[doc.ID] = doc
}

// Get returns the document with the given ID.
func (c *Corpus) Get(id string) (*Document, bool) {
	doc, ok := c.docs[id]
	return doc, ok
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.docs)
}

// Documents returns all documents in insertion order.
func (c *Corpus) Documents() []*Document {
	docs := make([]*Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, c.docs[id])
	}
	return docs
}

// Chunks returns every chunk of every document in corpus order.
func (c *Corpus) Chunks() []Chunk {
	var chunks []Chunk
	for _, id := range c.order {
		chunks = append(chunks, c.docs[id].Chunks...)
	}
	return chunks
}

// FindByTitle returns the document whose title matches after
// normalization, or nil.
func (c *Corpus) FindByTitle(title string) *Document {
	want := normalizeTitle(title)
	if want == "" {
		return nil
	}
	for _, id := range c.order {
		if normalizeTitle(c.docs[id].Title) == want {
			return c.docs[id]
		}
	}
	return nil
}

// TotalWords sums the word counts of all chunks, a rough size measure
// for stats output.
func (c *Corpus) TotalWords() int {
	total := 0
	for _, doc := range c.docs {
		for _, chunk := range doc.Chunks {
			total += wordCount(chunk.Text)
		}
	}
	return total
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				n++
				inWord = true
			}
		}
	}
	return n
}
