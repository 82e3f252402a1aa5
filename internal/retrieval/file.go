package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/scholiast/scholia/internal/model"
)

// FileRetriever serves pre-ranked passages from a JSON file. The file
// holds either a bare passage array or an object with a "passages"
// field. Queries do not re-rank; the stored relevance order stands.
type FileRetriever struct {
	passages []model.Passage
}

// NewFileRetriever loads passages from the given file.
func NewFileRetriever(path string) (*FileRetriever, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read passages file: %w", err)
	}

	var wrapper struct {
		Passages []model.Passage `json:"passages"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil || wrapper.Passages == nil {
		var bare []model.Passage
		if err2 := json.Unmarshal(data, &bare); err2 != nil {
			return nil, fmt.Errorf("parse passages file: %w", err2)
		}
		wrapper.Passages = bare
	}
	if len(wrapper.Passages) == 0 {
		return nil, fmt.Errorf("passages file %s holds no passages", path)
	}

	Finalize(wrapper.Passages)
	sort.SliceStable(wrapper.Passages, func(i, j int) bool {
		return wrapper.Passages[i].Relevance > wrapper.Passages[j].Relevance
	})

	return &FileRetriever{passages: wrapper.Passages}, nil
}

// Retrieve returns the topK stored passages regardless of query.
func (r *FileRetriever) Retrieve(ctx context.Context, query string, topK int) ([]model.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(r.passages)
	if topK > 0 && n > topK {
		n = topK
	}
	out := make([]model.Passage, n)
	copy(out, r.passages[:n])
	return out, nil
}

func (r *FileRetriever) Name() string {
	return "file"
}
