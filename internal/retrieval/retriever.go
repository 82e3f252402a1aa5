// Package retrieval supplies ranked passages for a query. Sources
// include a remote retrieval service, a locally loaded corpus, and
// pre-ranked passage files.
package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/scholiast/scholia/internal/model"
)

// Retriever produces ranked passages for a query.
type Retriever interface {
	// Retrieve returns up to topK passages ordered by relevance.
	Retrieve(ctx context.Context, query string, topK int) ([]model.Passage, error)
	// Name identifies the source for reports and logs.
	Name() string
}

// Finalize fills missing passage IDs and clamps relevance scores in
// place so downstream stages can rely on both.
func Finalize(passages []model.Passage) {
	for i := range passages {
		if passages[i].ID == "" {
			passages[i].ID = uuid.NewString()
		}
		passages[i].Relevance = model.Clamp01(passages[i].Relevance)
	}
}
