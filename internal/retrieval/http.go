package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/scholiast/scholia/internal/model"
)

// HTTPRetriever queries a remote retrieval endpoint. The endpoint
// receives {"query": ..., "top_k": ...} and answers with
// {"passages": [...]}.
type HTTPRetriever struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRetriever creates a retriever for the configured endpoint URL.
func NewHTTPRetriever(cfg model.RetrievalConfig) *HTTPRetriever {
	return &HTTPRetriever{
		endpoint: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type retrieveResponse struct {
	Passages []model.Passage `json:"passages"`
}

// Retrieve posts the query and returns the ranked passages.
func (r *HTTPRetriever) Retrieve(ctx context.Context, query string, topK int) ([]model.Passage, error) {
	payload, err := json.Marshal(retrieveRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("encode retrieval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("retrieval service returned %d %s", resp.StatusCode, resp.Status)
	}

	var out retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode retrieval response: %w", err)
	}

	passages := out.Passages
	if topK > 0 && len(passages) > topK {
		passages = passages[:topK]
	}
	Finalize(passages)
	return passages, nil
}

func (r *HTTPRetriever) Name() string {
	return "http"
}
