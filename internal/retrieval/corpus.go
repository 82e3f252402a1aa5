package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/scholiast/scholia/internal/corpus"
	"github.com/scholiast/scholia/internal/model"
	"github.com/scholiast/scholia/internal/similarity"
)

// CorpusRetriever ranks the chunks of a loaded corpus by word overlap
// with the query. It needs no external service, which makes it the
// default for local corpora.
type CorpusRetriever struct {
	corpus *corpus.Corpus
}

// NewCorpusRetriever creates a retriever over the given corpus.
func NewCorpusRetriever(c *corpus.Corpus) *CorpusRetriever {
	return &CorpusRetriever{corpus: c}
}

// Retrieve scores every chunk against the query and returns the topK
// best. Chunks with no overlap are dropped.
func (r *CorpusRetriever) Retrieve(ctx context.Context, query string, topK int) ([]model.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		chunk corpus.Chunk
		score float64
	}

	var candidates []scored
	for _, chunk := range r.corpus.Chunks() {
		score := similarity.WordOverlap(query, chunk.Text)
		if score > 0 {
			candidates = append(candidates, scored{chunk: chunk, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	passages := make([]model.Passage, 0, len(candidates))
	for _, cand := range candidates {
		passage := model.Passage{
			ID:         fmt.Sprintf("%s#%d", cand.chunk.DocumentID, cand.chunk.Index),
			DocumentID: cand.chunk.DocumentID,
			Text:       cand.chunk.Text,
			Position:   cand.chunk.Index,
			Relevance:  cand.score,
		}
		if doc, ok := r.corpus.Get(cand.chunk.DocumentID); ok {
			passage.SourceTitle = doc.Title
			passage.SourceAuthor = doc.Author
		}
		passages = append(passages, passage)
	}
	Finalize(passages)
	return passages, nil
}

func (r *CorpusRetriever) Name() string {
	return "corpus"
}
