package matching

import (
	"github.com/hireloop/talent-matcher/internal/ranking"
)

const (
	// Pools at or below this size skip the top-K cut entirely so the
	// pre-filter cannot produce false negatives on small datasets.
	smallPoolThreshold = 50

	defaultTopK        = 50
	defaultConcurrency = 4
)

// Options tune one matching call. The zero value selects all defaults.
type Options struct {
	// TopK bounds how many profiles survive the vector pre-filter.
	TopK int
	// ResultLimit caps the ranked list; zero returns the whole filtered set.
	ResultLimit int
	// ConcurrencyLimit bounds parallel pairwise scoring. Kept small by
	// default to respect external adapter rate limits.
	ConcurrencyLimit int
	// Weights overrides the default 50/30/20 composite weighting.
	Weights *ranking.Weights
}

func (o Options) topK(poolSize int) int {
	if o.TopK > 0 {
		return o.TopK
	}
	if poolSize <= smallPoolThreshold {
		return poolSize
	}
	return defaultTopK
}

func (o Options) concurrency() int {
	if o.ConcurrencyLimit > 0 {
		return o.ConcurrencyLimit
	}
	return defaultConcurrency
}

func (o Options) weights() ranking.Weights {
	if o.Weights != nil {
		return *o.Weights
	}
	return ranking.DefaultWeights()
}
