// Package vectorindex defines the semantic retrieval tier: top-K similarity
// search over indexed profiles and pairwise text similarity for scoring.
package vectorindex

import (
	"context"
	"errors"
)

const (
	// CollectionCandidates holds indexed candidate profile documents.
	CollectionCandidates = "candidates"
	// CollectionJobs holds indexed job profile documents.
	CollectionJobs = "jobs"
)

// ErrUnavailable signals that the vector backend cannot be reached. Matching
// aborts on it rather than degrading to unscored results.
var ErrUnavailable = errors.New("vector index unavailable")

// Hit is a single similarity search result. Score is cosine similarity, not
// distance: higher means closer.
type Hit struct {
	ID    string
	Score float64
}

// Searcher answers top-K nearest-profile queries against a named collection.
// Results are ordered by descending score. Implementations must be safe for
// concurrent use.
type Searcher interface {
	QuerySimilar(ctx context.Context, text, collection string, k int) ([]Hit, error)
}

// Comparer computes the cosine similarity of two free-text snippets. Used for
// the pairwise responsibility-alignment sub-score.
type Comparer interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Indexer accepts profile documents into a collection.
type Indexer interface {
	Upsert(ctx context.Context, collection, id, text string) error
}
