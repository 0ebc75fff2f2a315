// Package matching drives the two query modes: ranking candidates against one
// job and ranking jobs against one candidate. Each call is stateless and
// returns either a complete ranked set or a single fatal error.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hireloop/talent-matcher/internal/profile"
	"github.com/hireloop/talent-matcher/internal/ranking"
	"github.com/hireloop/talent-matcher/internal/scoring"
	"github.com/hireloop/talent-matcher/internal/vectorindex"
)

// Outcome packages one matching call: a complete ranked result list plus the
// ids that were skipped because their profile could not be fetched.
type Outcome struct {
	RunID   string
	Results []*ranking.Result
	Skipped []string
}

// Stats summarizes the matching universe, mirroring the system-wide analysis
// the extraction pipeline reports on.
type Stats struct {
	Candidates     int
	Jobs           int
	PotentialPairs int
}

// Orchestrator wires the profile source, the vector pre-filter and the
// pairwise scorer together. Stateless per invocation.
type Orchestrator struct {
	source   profile.Source
	searcher vectorindex.Searcher
	scorer   *scoring.Scorer
	logger   *zap.Logger
}

func NewOrchestrator(source profile.Source, searcher vectorindex.Searcher, scorer *scoring.Scorer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		source:   source,
		searcher: searcher,
		scorer:   scorer,
		logger:   logger,
	}
}

// MatchCandidatesToJob ranks the candidate pool against one job.
func (o *Orchestrator) MatchCandidatesToJob(ctx context.Context, job *profile.Job, opts Options) (*Outcome, error) {
	ranker, err := newRanker(opts)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errors.New("job profile is required")
	}

	pool, err := o.source.CandidateIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	ids, err := o.prefilter(ctx, job.Document(), vectorindex.CollectionCandidates, pool, opts)
	if err != nil {
		return nil, err
	}

	outcome := newOutcome()

	o.logger.Info("matching candidates to job",
		zap.String("run_id", outcome.RunID),
		zap.String("job_id", job.ID),
		zap.Int("pool", len(pool)),
		zap.Int("prefiltered", len(ids)),
	)

	pairs := make([]*pair, 0, len(ids))
	for _, id := range ids {
		candidate, err := o.source.Candidate(ctx, id)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				o.logger.Warn("skipping missing candidate",
					zap.String("run_id", outcome.RunID),
					zap.String("candidate_id", id),
				)
				outcome.Skipped = append(outcome.Skipped, id)
				continue
			}
			return nil, fmt.Errorf("fetching candidate %s: %w", id, err)
		}
		pairs = append(pairs, &pair{candidate: candidate, job: job})
	}

	if err := o.scorePairs(ctx, pairs, ranker, opts); err != nil {
		return nil, err
	}

	o.finish(outcome, pairs, opts)
	return outcome, nil
}

// MatchJobsToCandidate ranks the job pool against one candidate.
func (o *Orchestrator) MatchJobsToCandidate(ctx context.Context, candidate *profile.Candidate, opts Options) (*Outcome, error) {
	ranker, err := newRanker(opts)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, errors.New("candidate profile is required")
	}

	pool, err := o.source.JobIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	ids, err := o.prefilter(ctx, candidate.Document(), vectorindex.CollectionJobs, pool, opts)
	if err != nil {
		return nil, err
	}

	outcome := newOutcome()

	o.logger.Info("matching jobs to candidate",
		zap.String("run_id", outcome.RunID),
		zap.String("candidate_id", candidate.ID),
		zap.Int("pool", len(pool)),
		zap.Int("prefiltered", len(ids)),
	)

	pairs := make([]*pair, 0, len(ids))
	for _, id := range ids {
		job, err := o.source.Job(ctx, id)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				o.logger.Warn("skipping missing job",
					zap.String("run_id", outcome.RunID),
					zap.String("job_id", id),
				)
				outcome.Skipped = append(outcome.Skipped, id)
				continue
			}
			return nil, fmt.Errorf("fetching job %s: %w", id, err)
		}
		pairs = append(pairs, &pair{candidate: candidate, job: job})
	}

	if err := o.scorePairs(ctx, pairs, ranker, opts); err != nil {
		return nil, err
	}

	o.finish(outcome, pairs, opts)
	return outcome, nil
}

// Stats reports pool sizes for the whole matching universe.
func (o *Orchestrator) Stats(ctx context.Context) (*Stats, error) {
	candidates, err := o.source.CandidateIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	jobs, err := o.source.JobIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	return &Stats{
		Candidates:     len(candidates),
		Jobs:           len(jobs),
		PotentialPairs: len(candidates) * len(jobs),
	}, nil
}

type pair struct {
	candidate *profile.Candidate
	job       *profile.Job
	result    *ranking.Result
}

func newRanker(opts Options) (*ranking.Ranker, error) {
	// Weight validation happens before any I/O so a bad configuration is
	// rejected up front.
	return ranking.NewRanker(opts.weights())
}

func newOutcome() *Outcome {
	return &Outcome{
		RunID:   uuid.NewString(),
		Results: make([]*ranking.Result, 0),
		Skipped: make([]string, 0),
	}
}

// prefilter narrows the pool via vector similarity. The whole call fails when
// the index is unreachable: partial results without the semantic tier would be
// silently misleading.
func (o *Orchestrator) prefilter(ctx context.Context, query, collection string, pool []string, opts Options) ([]string, error) {
	if len(pool) == 0 {
		return nil, nil
	}

	k := opts.topK(len(pool))
	hits, err := o.searcher.QuerySimilar(ctx, query, collection, k)
	if err != nil {
		if errors.Is(err, vectorindex.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", vectorindex.ErrUnavailable, err)
	}

	known := make(map[string]struct{}, len(pool))
	for _, id := range pool {
		known[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(hits))
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		if _, ok := known[hit.ID]; !ok {
			continue
		}
		if _, ok := seen[hit.ID]; ok {
			continue
		}
		seen[hit.ID] = struct{}{}
		ids = append(ids, hit.ID)
	}

	return ids, nil
}

// scorePairs runs pairwise scoring under a bounded worker group. Every pair
// writes only its own slot, so completion order cannot influence the output.
func (o *Orchestrator) scorePairs(ctx context.Context, pairs []*pair, ranker *ranking.Ranker, opts Options) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(opts.concurrency())

	for _, p := range pairs {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			scores, err := o.scorer.Score(ctx, p.candidate, p.job)
			if err != nil {
				if errors.Is(err, scoring.ErrInsufficientData) {
					p.result = ranker.ComposeEmpty(p.candidate.ID, p.job.ID)
					return nil
				}
				return err
			}

			p.result = ranker.Compose(p.candidate.ID, p.job.ID, scores)
			return nil
		})
	}

	return group.Wait()
}

// finish sorts deterministically and assigns ranks. Ties fall back to the
// original input order, never to identifiers.
func (o *Orchestrator) finish(outcome *Outcome, pairs []*pair, opts Options) {
	results := make([]*ranking.Result, 0, len(pairs))
	for seq, p := range pairs {
		p.result.SetSequence(seq)
		results = append(results, p.result)
	}

	sort.SliceStable(results, func(i, j int) bool { return ranking.Less(results[i], results[j]) })

	if opts.ResultLimit > 0 && opts.ResultLimit < len(results) {
		results = results[:opts.ResultLimit]
	}

	for i, result := range results {
		result.Rank = i + 1
	}

	outcome.Results = results

	o.logger.Info("matching completed",
		zap.String("run_id", outcome.RunID),
		zap.Int("results", len(results)),
		zap.Int("skipped", len(outcome.Skipped)),
	)
}
