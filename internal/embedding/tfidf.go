// Package embedding turns profile text into numeric vectors for the semantic
// matching tier. The TF-IDF embedder is self-contained and needs no external
// model service, which keeps the semantic tier reproducible.
package embedding

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Embedder converts free text into a fixed-size vector. Implementations may
// require a preparation pass over the corpus before embedding.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}

// TFIDF is a term-frequency / inverse-document-frequency vectorizer with a
// stable, sorted vocabulary so embeddings are deterministic for a given corpus.
type TFIDF struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
	prepared   bool
	tokens     *regexp.Regexp
}

func NewTFIDF() *TFIDF {
	return &TFIDF{
		vocabulary: make(map[string]int),
		tokens:     regexp.MustCompile(`[\p{L}\p{N}]+(?:[.+#'-][\p{L}\p{N}]+)*`),
	}
}

func (e *TFIDF) Name() string { return "tfidf" }

// Prepare builds the vocabulary and smoothed IDF weights from the corpus.
func (e *TFIDF) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for tf-idf preparation")
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("corpus produced no tokens")
	}

	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.dimension = len(terms)
	e.prepared = true

	return nil
}

func (e *TFIDF) Dimension() int { return e.dimension }

// Embed returns the L2-normalized TF-IDF vector for the text. Tokens outside
// the prepared vocabulary are ignored.
func (e *TFIDF) Embed(text string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("tf-idf embedder is not prepared")
	}

	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}

	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec, nil
}

func (e *TFIDF) tokenize(text string) []string {
	return e.tokens.FindAllString(strings.ToLower(text), -1)
}

// Cosine returns the cosine similarity of two vectors. Vectors of unequal
// length are compared over the shorter prefix.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
