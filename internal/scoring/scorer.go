// Package scoring computes the three pairwise sub-scores a match is built
// from: structured skill overlap, semantic responsibility alignment and
// experience alignment.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hireloop/talent-matcher/internal/profile"
	"github.com/hireloop/talent-matcher/internal/vectorindex"
)

// Per-skill scores for the structured overlap tier. Partial means substring
// or token-level overlap, not semantic relatedness.
const (
	exactSkillScore   = 1.0
	partialSkillScore = 0.5

	// Candidates at or above this fraction of the required years get the
	// reduced flat score instead of the linear ratio.
	nearExperienceRatio = 0.75
	nearExperienceScore = 0.6
)

// ErrInsufficientData is returned when both profiles carry no skills and no
// responsibility text. Callers surface it as a zero-scored result, not as a
// batch failure.
var ErrInsufficientData = errors.New("insufficient profile data to compare")

// MatchKind classifies how a candidate skill satisfied a job requirement.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchPartial MatchKind = "partial"
	MatchNone    MatchKind = "none"
)

// SkillMatch pairs one job-required skill with the best candidate skill found
// for it.
type SkillMatch struct {
	JobSkill       string
	CandidateSkill string
	Kind           MatchKind
}

// ExperienceFit states how the candidate's total experience relates to the
// job's requirement.
type ExperienceFit string

const (
	ExperienceExceeds ExperienceFit = "exceeds"
	ExperienceMeets   ExperienceFit = "meets"
	ExperienceBelow   ExperienceFit = "below"
)

// SubScores are the three independent sub-scores for one (candidate, job)
// pair, each in [0, 1].
type SubScores struct {
	SkillOverlap   float64
	Responsibility float64
	Experience     float64

	Skills        []SkillMatch
	ExperienceFit ExperienceFit
}

// Scorer computes SubScores for profile pairs. It is stateless apart from the
// similarity comparer and safe for concurrent use.
type Scorer struct {
	comparer vectorindex.Comparer
}

func NewScorer(comparer vectorindex.Comparer) *Scorer {
	return &Scorer{comparer: comparer}
}

// Score computes all sub-scores for the pair. It is deterministic for
// identical inputs: the only external call is one similarity lookup.
func (s *Scorer) Score(ctx context.Context, candidate *profile.Candidate, job *profile.Job) (*SubScores, error) {
	if candidate == nil || job == nil {
		return nil, errors.New("both profiles are required")
	}

	candText := candidate.ResponsibilityText()
	jobText := job.ResponsibilityText()

	if len(candidate.Skills) == 0 && len(job.Skills) == 0 && candText == "" && jobText == "" {
		return nil, fmt.Errorf("candidate %s vs job %s: %w", candidate.ID, job.ID, ErrInsufficientData)
	}

	skillScore, skills := skillOverlap(candidate.Skills, job.Skills)

	respScore := 0.0
	if candText != "" && jobText != "" {
		cosine, err := s.comparer.Similarity(ctx, candText, jobText)
		if err != nil {
			return nil, fmt.Errorf("responsibility similarity: %w", err)
		}
		// Negative cosine carries no useful signal for alignment.
		if cosine > 0 {
			respScore = cosine
		}
		if respScore > 1 {
			respScore = 1
		}
	}

	expScore, fit := experienceAlignment(candidate.ExperienceYears, job.RequiredYears)

	return &SubScores{
		SkillOverlap:   skillScore,
		Responsibility: respScore,
		Experience:     expScore,
		Skills:         skills,
		ExperienceFit:  fit,
	}, nil
}

// skillOverlap scores every job-required skill by its best candidate match and
// returns the mean. A job with no required skills scores 0 by definition.
func skillOverlap(candidateSkills, jobSkills []string) (float64, []SkillMatch) {
	matches := make([]SkillMatch, 0, len(jobSkills))
	if len(jobSkills) == 0 {
		return 0, matches
	}

	total := 0.0
	for _, required := range jobSkills {
		best := SkillMatch{JobSkill: required, Kind: MatchNone}
		bestScore := 0.0

		for _, owned := range candidateSkills {
			score, kind := skillPairScore(owned, required)
			if score > bestScore {
				bestScore = score
				best.CandidateSkill = owned
				best.Kind = kind
			}
			if kind == MatchExact {
				break
			}
		}

		total += bestScore
		matches = append(matches, best)
	}

	return total / float64(len(jobSkills)), matches
}

func skillPairScore(candidateSkill, jobSkill string) (float64, MatchKind) {
	c := strings.ToLower(strings.TrimSpace(candidateSkill))
	j := strings.ToLower(strings.TrimSpace(jobSkill))
	if c == "" || j == "" {
		return 0, MatchNone
	}

	if c == j {
		return exactSkillScore, MatchExact
	}

	if strings.Contains(c, j) || strings.Contains(j, c) || tokensOverlap(c, j) {
		return partialSkillScore, MatchPartial
	}

	return 0, MatchNone
}

// tokensOverlap reports whether the two skill strings share a token once split
// on common separators, so "react.js" still matches "react native".
func tokensOverlap(a, b string) bool {
	sep := func(r rune) bool {
		switch r {
		case ' ', '.', '-', '_', '/', ',':
			return true
		}
		return false
	}

	ta := strings.FieldsFunc(a, sep)
	tb := strings.FieldsFunc(b, sep)
	if len(ta) < 2 && len(tb) < 2 {
		return false
	}

	set := make(map[string]struct{}, len(ta))
	for _, tok := range ta {
		set[tok] = struct{}{}
	}
	for _, tok := range tb {
		if _, ok := set[tok]; ok {
			return true
		}
	}
	return false
}

// experienceAlignment degrades gracefully rather than failing hard: extraction
// of year counts is imprecise, so a near miss keeps a reduced flat score and
// anything lower scales linearly, capped below the near-miss tier.
func experienceAlignment(candidateYears, requiredYears float64) (float64, ExperienceFit) {
	if requiredYears <= 0 {
		return 1.0, ExperienceMeets
	}

	if candidateYears >= requiredYears {
		fit := ExperienceMeets
		if candidateYears > requiredYears {
			fit = ExperienceExceeds
		}
		return 1.0, fit
	}

	if candidateYears >= nearExperienceRatio*requiredYears {
		return nearExperienceScore, ExperienceBelow
	}

	ratio := candidateYears / requiredYears
	if ratio > nearExperienceScore {
		ratio = nearExperienceScore
	}
	if ratio < 0 {
		ratio = 0
	}
	return ratio, ExperienceBelow
}
