// Package qdrant is a minimal REST adapter to a Qdrant server. Collections use
// cosine distance; the embedder that produced the indexed vectors must also be
// supplied so queries and pairwise comparisons live in the same vector space.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/talent-matcher/internal/embedding"
	"github.com/hireloop/talent-matcher/internal/vectorindex"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type Index struct {
	url      string
	apiKey   string
	client   *http.Client
	embedder embedding.Embedder
	logger   *zap.Logger
}

func New(cfg Config, embedder embedding.Embedder, logger *zap.Logger) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Index{
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		embedder: embedder,
		logger:   logger,
	}
}

// EnsureCollection creates the collection when missing. Qdrant treats the PUT
// as idempotent for an existing collection with the same schema.
func (i *Index) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid vector dimension")
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}

	return i.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", i.url, collection), body, nil)
}

func (i *Index) Upsert(ctx context.Context, collection, id, text string) error {
	vec, err := i.embedder.Embed(text)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", id, err)
	}

	body := map[string]any{
		"points": []map[string]any{{
			"id":      id,
			"vector":  vec,
			"payload": map[string]any{"profile_id": id},
		}},
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", i.url, collection)
	return i.do(ctx, http.MethodPut, url, body, nil)
}

func (i *Index) QuerySimilar(ctx context.Context, text, collection string, k int) ([]vectorindex.Hit, error) {
	vec, err := i.embedder.Embed(text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	body := map[string]any{
		"vector":       vec,
		"limit":        k,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", i.url, collection)
	if err := i.do(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, err
	}

	hits := make([]vectorindex.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, _ := r.Payload["profile_id"].(string)
		hits = append(hits, vectorindex.Hit{ID: id, Score: r.Score})
	}

	i.logger.Debug("qdrant search completed",
		zap.String("collection", collection),
		zap.Int("hits", len(hits)),
	)

	return hits, nil
}

// Similarity compares two texts locally with the shared embedder. No server
// round-trip is needed since the embedder defines the vector space.
func (i *Index) Similarity(_ context.Context, a, b string) (float64, error) {
	va, err := i.embedder.Embed(a)
	if err != nil {
		return 0, fmt.Errorf("embedding text: %w", err)
	}
	vb, err := i.embedder.Embed(b)
	if err != nil {
		return 0, fmt.Errorf("embedding text: %w", err)
	}
	return embedding.Cosine(va, vb), nil
}

func (i *Index) do(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling qdrant request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if i.apiKey != "" {
		req.Header.Set("api-key", i.apiKey)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", vectorindex.ErrUnavailable, method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s returned %s", vectorindex.ErrUnavailable, url, resp.Status)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding qdrant response: %w", err)
		}
	}

	return nil
}
