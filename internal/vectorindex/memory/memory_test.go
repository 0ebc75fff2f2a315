package memory

import (
	"context"
	"testing"

	"github.com/hireloop/talent-matcher/internal/embedding"
	"github.com/hireloop/talent-matcher/internal/vectorindex"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	idx := NewIndex(embedding.NewTFIDF())
	ctx := context.Background()

	docs := map[string]string{
		"c1": "python aws backend services lambda",
		"c2": "react typescript frontend components",
		"c3": "kubernetes docker terraform platform",
	}
	for id, text := range docs {
		if err := idx.Upsert(ctx, vectorindex.CollectionCandidates, id, text); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := idx.Upsert(ctx, vectorindex.CollectionJobs, "j1", "python aws backend engineer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return idx
}

func TestQuerySimilarOrdersByScore(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.QuerySimilar(context.Background(), "python backend aws", vectorindex.CollectionCandidates, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}

	if hits[0].ID != "c1" {
		t.Fatalf("expected c1 first, got %s", hits[0].ID)
	}

	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("hits not ordered by descending score: %+v", hits)
		}
	}
}

func TestQuerySimilarHonorsK(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.QuerySimilar(context.Background(), "python", vectorindex.CollectionCandidates, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestSimilarityPairwise(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	same, err := idx.Similarity(ctx, "python aws backend", "python aws backend")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if same < 0.99 {
		t.Fatalf("expected identical texts to score ~1, got %v", same)
	}

	far, err := idx.Similarity(ctx, "python aws backend", "react frontend components")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if far >= same {
		t.Fatalf("expected unrelated texts to score lower: %v vs %v", far, same)
	}
}

func TestEmptyIndexFails(t *testing.T) {
	idx := NewIndex(embedding.NewTFIDF())

	if _, err := idx.QuerySimilar(context.Background(), "python", vectorindex.CollectionCandidates, 5); err == nil {
		t.Fatalf("expected error for empty index")
	}
}
