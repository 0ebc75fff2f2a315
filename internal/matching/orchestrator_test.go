package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/hireloop/talent-matcher/internal/profile"
	"github.com/hireloop/talent-matcher/internal/ranking"
	"github.com/hireloop/talent-matcher/internal/scoring"
	"github.com/hireloop/talent-matcher/internal/vectorindex"
)

type stubSource struct {
	candidates map[string]*profile.Candidate
	jobs       map[string]*profile.Job

	candidateOrder []string
	jobOrder       []string

	failFetch map[string]error
}

func (s *stubSource) Candidate(_ context.Context, id string) (*profile.Candidate, error) {
	if err, ok := s.failFetch[id]; ok {
		return nil, err
	}
	c, ok := s.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s: %w", id, profile.ErrNotFound)
	}
	return c, nil
}

func (s *stubSource) Job(_ context.Context, id string) (*profile.Job, error) {
	if err, ok := s.failFetch[id]; ok {
		return nil, err
	}
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, profile.ErrNotFound)
	}
	return j, nil
}

func (s *stubSource) CandidateIDs(_ context.Context) ([]string, error) {
	return s.candidateOrder, nil
}

func (s *stubSource) JobIDs(_ context.Context) ([]string, error) {
	return s.jobOrder, nil
}

// stubSearcher returns all known ids in a fixed order with fixed scores.
type stubSearcher struct {
	hits map[string][]vectorindex.Hit
	err  error
	k    int
}

func (s *stubSearcher) QuerySimilar(_ context.Context, _, collection string, k int) ([]vectorindex.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.k = k
	hits := s.hits[collection]
	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

type fixedComparer struct {
	scores map[string]float64
}

func (f *fixedComparer) Similarity(_ context.Context, a, _ string) (float64, error) {
	if score, ok := f.scores[a]; ok {
		return score, nil
	}
	return 0.5, nil
}

func newTestOrchestrator(source *stubSource, searcher *stubSearcher) *Orchestrator {
	scorer := scoring.NewScorer(&fixedComparer{})
	return NewOrchestrator(source, searcher, scorer, zap.NewNop())
}

func testJob() *profile.Job {
	return &profile.Job{
		ID:               "j1",
		Title:            "Backend Engineer",
		Skills:           []string{"Python", "AWS", "Docker"},
		Responsibilities: []string{"Build and run backend services."},
		RequiredYears:    5,
	}
}

func testSource() *stubSource {
	return &stubSource{
		candidates: map[string]*profile.Candidate{
			"c1": {
				ID:              "c1",
				Skills:          []string{"python", "AWS", "Docker"},
				ExperienceYears: 6,
				Roles:           []profile.Role{{Responsibilities: "Ran backend services on AWS."}},
			},
			"c2": {
				ID:              "c2",
				Skills:          []string{"python", "Kubernetes"},
				ExperienceYears: 3,
				Roles:           []profile.Role{{Responsibilities: "Internal tooling."}},
			},
			"c3": {
				ID:              "c3",
				Skills:          []string{"Photoshop"},
				ExperienceYears: 1,
				Roles:           []profile.Role{{Responsibilities: "Design work."}},
			},
		},
		jobs:           map[string]*profile.Job{"j1": testJob()},
		candidateOrder: []string{"c1", "c2", "c3"},
		jobOrder:       []string{"j1"},
	}
}

func allCandidateHits() map[string][]vectorindex.Hit {
	return map[string][]vectorindex.Hit{
		vectorindex.CollectionCandidates: {
			{ID: "c3", Score: 0.9},
			{ID: "c1", Score: 0.8},
			{ID: "c2", Score: 0.7},
		},
	}
}

func TestMatchCandidatesToJobRanksByComposite(t *testing.T) {
	source := testSource()
	searcher := &stubSearcher{hits: allCandidateHits()}
	o := newTestOrchestrator(source, searcher)

	outcome, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(outcome.Results))
	}

	// c1 matches all skills and exceeds experience; c3 matches nothing.
	if outcome.Results[0].CandidateID != "c1" {
		t.Fatalf("expected c1 ranked first, got %s", outcome.Results[0].CandidateID)
	}
	if outcome.Results[2].CandidateID != "c3" {
		t.Fatalf("expected c3 ranked last, got %s", outcome.Results[2].CandidateID)
	}

	for i, result := range outcome.Results {
		if result.Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, result.Rank)
		}
		if result.Score < 0 || result.Score > 100 {
			t.Fatalf("composite out of bounds: %v", result.Score)
		}
	}

	if len(outcome.Skipped) != 0 {
		t.Fatalf("expected no skipped ids, got %v", outcome.Skipped)
	}
}

func TestMatchCandidatesToJobDeterministic(t *testing.T) {
	source := testSource()
	searcher := &stubSearcher{hits: allCandidateHits()}
	o := newTestOrchestrator(source, searcher)

	first, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first.Results {
		a, b := first.Results[i], second.Results[i]
		if a.CandidateID != b.CandidateID || a.Score != b.Score {
			t.Fatalf("results differ across identical calls: %+v vs %+v", a, b)
		}
	}
}

func TestMatchCandidatesToJobSkipsMissingProfiles(t *testing.T) {
	source := testSource()
	delete(source.candidates, "c2")
	searcher := &stubSearcher{hits: allCandidateHits()}
	o := newTestOrchestrator(source, searcher)

	outcome, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(outcome.Results))
	}
	if len(outcome.Skipped) != 1 || outcome.Skipped[0] != "c2" {
		t.Fatalf("expected c2 skipped, got %v", outcome.Skipped)
	}
}

func TestMatchCandidatesToJobEmptyUniverse(t *testing.T) {
	source := &stubSource{}
	searcher := &stubSearcher{}
	o := newTestOrchestrator(source, searcher)

	outcome, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Results) != 0 || len(outcome.Skipped) != 0 {
		t.Fatalf("expected empty outcome, got %+v", outcome)
	}
}

func TestMatchCandidatesToJobIndexUnavailable(t *testing.T) {
	source := testSource()
	searcher := &stubSearcher{err: fmt.Errorf("dial tcp: %w", vectorindex.ErrUnavailable)}
	o := newTestOrchestrator(source, searcher)

	_, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{})
	if !errors.Is(err, vectorindex.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMatchCandidatesToJobInvalidWeightsRejectedBeforeIO(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("must not be called")}
	o := newTestOrchestrator(testSource(), searcher)

	bad := &ranking.Weights{Skills: 0.5, Responsibility: 0.3, Experience: 0.19}
	_, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{Weights: bad})

	var invalid *ranking.InvalidWeightsError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidWeightsError before any retrieval, got %v", err)
	}
}

func TestMatchCandidatesToJobCancellation(t *testing.T) {
	source := testSource()
	searcher := &stubSearcher{hits: allCandidateHits()}
	o := newTestOrchestrator(source, searcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := o.MatchCandidatesToJob(ctx, testJob(), Options{})
	if err == nil {
		t.Fatalf("expected error on cancelled context")
	}
	if outcome != nil {
		t.Fatalf("expected no partial outcome, got %+v", outcome)
	}
}

func TestMatchCandidatesToJobResultLimit(t *testing.T) {
	source := testSource()
	searcher := &stubSearcher{hits: allCandidateHits()}
	o := newTestOrchestrator(source, searcher)

	outcome, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{ResultLimit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(outcome.Results))
	}
	if outcome.Results[0].CandidateID != "c1" {
		t.Fatalf("expected best result kept, got %s", outcome.Results[0].CandidateID)
	}
}

func TestSmallPoolUsesWholePool(t *testing.T) {
	source := testSource()
	searcher := &stubSearcher{hits: allCandidateHits()}
	o := newTestOrchestrator(source, searcher)

	if _, err := o.MatchCandidatesToJob(context.Background(), testJob(), Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Three candidates are below the small-pool threshold, so no top-K cut.
	if searcher.k != 3 {
		t.Fatalf("expected k equal to pool size, got %d", searcher.k)
	}
}

func TestMatchJobsToCandidate(t *testing.T) {
	source := testSource()
	searcher := &stubSearcher{hits: map[string][]vectorindex.Hit{
		vectorindex.CollectionJobs: {{ID: "j1", Score: 0.8}},
	}}
	o := newTestOrchestrator(source, searcher)

	candidate := source.candidates["c1"]
	outcome, err := o.MatchJobsToCandidate(context.Background(), candidate, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcome.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(outcome.Results))
	}

	result := outcome.Results[0]
	if result.JobID != "j1" || result.CandidateID != "c1" {
		t.Fatalf("unexpected pair: %+v", result)
	}
	if result.Rationale == "" {
		t.Fatalf("expected a rationale")
	}
}

func TestStats(t *testing.T) {
	o := newTestOrchestrator(testSource(), &stubSearcher{})

	stats, err := o.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Candidates != 3 || stats.Jobs != 1 || stats.PotentialPairs != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestInsufficientDataPairScoresZero(t *testing.T) {
	source := testSource()
	source.candidates["c4"] = &profile.Candidate{ID: "c4"}
	source.candidateOrder = append(source.candidateOrder, "c4")

	hits := allCandidateHits()
	hits[vectorindex.CollectionCandidates] = append(hits[vectorindex.CollectionCandidates], vectorindex.Hit{ID: "c4", Score: 0.1})
	searcher := &stubSearcher{hits: hits}
	o := newTestOrchestrator(source, searcher)

	// A job with no skills and no responsibility text against an empty candidate.
	emptyJob := &profile.Job{ID: "j2"}
	source.jobs["j2"] = emptyJob

	outcome, err := o.MatchCandidatesToJob(context.Background(), emptyJob, Options{})
	if err != nil {
		t.Fatalf("expected insufficient data to be non-fatal, got %v", err)
	}

	var empty *ranking.Result
	for _, result := range outcome.Results {
		if result.CandidateID == "c4" {
			empty = result
		}
	}
	if empty == nil {
		t.Fatalf("expected a result for the empty pair")
	}
	if empty.Score != 0 {
		t.Fatalf("expected zero score, got %v", empty.Score)
	}
	if empty.Rationale == "" {
		t.Fatalf("expected explanatory rationale")
	}
}
