// Package ranking merges sub-scores into one bounded composite score with a
// reproducible, template-based rationale.
package ranking

import (
	"fmt"
	"math"
	"strings"

	"github.com/hireloop/talent-matcher/internal/scoring"
)

const weightTolerance = 1e-6

// InvalidWeightsError reports a weight configuration that does not sum to 1.0
// within tolerance. Validated before any scoring work starts.
type InvalidWeightsError struct {
	Sum float64
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("match weights must sum to 1.0, got %.6f", e.Sum)
}

// Weights controls the contribution of each sub-score to the composite.
type Weights struct {
	Skills         float64 `mapstructure:"skills"`
	Responsibility float64 `mapstructure:"responsibility"`
	Experience     float64 `mapstructure:"experience"`
}

// DefaultWeights is the fixed 50/30/20 policy: structured overlap dominates,
// semantic alignment refines, experience adjusts.
func DefaultWeights() Weights {
	return Weights{Skills: 0.5, Responsibility: 0.3, Experience: 0.2}
}

func (w Weights) Validate() error {
	sum := w.Skills + w.Responsibility + w.Experience
	if math.Abs(sum-1.0) > weightTolerance {
		return &InvalidWeightsError{Sum: sum}
	}
	return nil
}

// Result is one scored (candidate, job) pair. Immutable after construction;
// Rank is assigned by the orchestrator once the full set is sorted.
type Result struct {
	CandidateID string
	JobID       string

	// Score is the composite in [0, 100] with two-decimal precision.
	Score float64

	Skills        []scoring.SkillMatch
	ExperienceFit scoring.ExperienceFit
	Rationale     string

	Rank int

	// AI carries an optional LLM-authored narrative attached by a
	// downstream enrichment step. Never populated by the core.
	AI *Narrative

	subScores *scoring.SubScores
	seq       int
}

// Narrative is prose attached to a result after the core has scored it.
type Narrative struct {
	Summary        string
	Recommendation string
	Raw            string
}

// Ranker composes sub-scores under a validated weight configuration.
type Ranker struct {
	weights Weights
}

func NewRanker(weights Weights) (*Ranker, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Ranker{weights: weights}, nil
}

// Compose builds the final result for one pair. The composite is derived only
// from the sub-scores, so recomputation from the same inputs is deterministic.
func (r *Ranker) Compose(candidateID, jobID string, scores *scoring.SubScores) *Result {
	composite := r.weights.Skills*scores.SkillOverlap +
		r.weights.Responsibility*scores.Responsibility +
		r.weights.Experience*scores.Experience

	return &Result{
		CandidateID:   candidateID,
		JobID:         jobID,
		Score:         round2(100 * composite),
		Skills:        scores.Skills,
		ExperienceFit: scores.ExperienceFit,
		Rationale:     rationale(scores),
		subScores:     scores,
	}
}

// ComposeEmpty builds a zero-scored result for a pair that had nothing to
// compare. Keeps batch matching going instead of failing it.
func (r *Ranker) ComposeEmpty(candidateID, jobID string) *Result {
	return &Result{
		CandidateID:   candidateID,
		JobID:         jobID,
		Score:         0,
		ExperienceFit: scoring.ExperienceBelow,
		Rationale:     "No comparable skills or responsibilities were extracted for this pair",
		subScores:     &scoring.SubScores{},
	}
}

// Less orders results for ranking: composite descending, then skill overlap,
// then experience, then first-seen input order. Identifiers never break ties,
// which avoids alphabetic bias.
func Less(a, b *Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.subScores.SkillOverlap != b.subScores.SkillOverlap {
		return a.subScores.SkillOverlap > b.subScores.SkillOverlap
	}
	if a.subScores.Experience != b.subScores.Experience {
		return a.subScores.Experience > b.subScores.Experience
	}
	return a.seq < b.seq
}

// SetSequence records the original input position used as the final tie-break.
func (r *Result) SetSequence(seq int) { r.seq = seq }

// SubScores exposes the underlying sub-scores for logging and enrichment.
func (r *Result) SubScores() scoring.SubScores {
	if r.subScores == nil {
		return scoring.SubScores{}
	}
	return *r.subScores
}

// rationale renders the deterministic explanation template. No model call is
// involved, so the core's output stays reproducible.
func rationale(scores *scoring.SubScores) string {
	matched := make([]string, 0, len(scores.Skills))
	for _, m := range scores.Skills {
		if m.Kind != scoring.MatchNone {
			matched = append(matched, m.JobSkill)
		}
	}

	var b strings.Builder
	if len(scores.Skills) == 0 {
		b.WriteString("No skills are required for this role")
	} else {
		fmt.Fprintf(&b, "Matches %d/%d required skills", len(matched), len(scores.Skills))
		if len(matched) > 0 {
			sample := matched
			if len(sample) > 3 {
				sample = sample[:3]
			}
			fmt.Fprintf(&b, " including %s", strings.Join(sample, ", "))
		}
	}

	switch scores.ExperienceFit {
	case scoring.ExperienceExceeds:
		b.WriteString("; exceeds experience requirement")
	case scoring.ExperienceMeets:
		b.WriteString("; meets experience requirement")
	case scoring.ExperienceBelow:
		b.WriteString("; below experience requirement")
	}

	if scores.Responsibility > 0 {
		fmt.Fprintf(&b, "; responsibility alignment %.0f%%", 100*scores.Responsibility)
	}

	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
