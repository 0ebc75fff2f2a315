// Package memory is a brute-force in-process vector index. Documents are
// embedded with a corpus-prepared embedder and searched by cosine similarity.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hireloop/talent-matcher/internal/embedding"
	"github.com/hireloop/talent-matcher/internal/vectorindex"
)

type document struct {
	id   string
	text string
	vec  []float64
}

// Index keeps one document list per collection. The embedder vocabulary is
// rebuilt from the union of all collections whenever documents change, so
// candidate and job texts share one vector space.
type Index struct {
	mu          sync.RWMutex
	embedder    embedding.Embedder
	collections map[string][]*document
	dirty       bool
}

func NewIndex(embedder embedding.Embedder) *Index {
	return &Index{
		embedder:    embedder,
		collections: make(map[string][]*document),
		dirty:       true,
	}
}

func (i *Index) Upsert(_ context.Context, collection, id, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	docs := i.collections[collection]
	for _, doc := range docs {
		if doc.id == id {
			doc.text = text
			doc.vec = nil
			i.dirty = true
			return nil
		}
	}

	i.collections[collection] = append(docs, &document{id: id, text: text})
	i.dirty = true
	return nil
}

func (i *Index) QuerySimilar(_ context.Context, text, collection string, k int) ([]vectorindex.Hit, error) {
	if err := i.rebuild(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	query, err := i.embedder.Embed(text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	docs := i.collections[collection]
	hits := make([]vectorindex.Hit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, vectorindex.Hit{ID: doc.id, Score: embedding.Cosine(query, doc.vec)})
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}

	return hits, nil
}

// Similarity embeds both texts in the shared vector space and returns their
// cosine similarity.
func (i *Index) Similarity(_ context.Context, a, b string) (float64, error) {
	if err := i.rebuild(); err != nil {
		return 0, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

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

func (i *Index) rebuild() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.dirty {
		return nil
	}

	corpus := make([]string, 0)
	for _, docs := range i.collections {
		for _, doc := range docs {
			corpus = append(corpus, doc.text)
		}
	}
	if len(corpus) == 0 {
		return fmt.Errorf("no documents indexed")
	}

	if err := i.embedder.Prepare(corpus); err != nil {
		return fmt.Errorf("preparing embedder: %w", err)
	}

	for _, docs := range i.collections {
		for _, doc := range docs {
			vec, err := i.embedder.Embed(doc.text)
			if err != nil {
				return fmt.Errorf("embedding document %s: %w", doc.id, err)
			}
			doc.vec = vec
		}
	}

	i.dirty = false
	return nil
}
