package ranking

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/hireloop/talent-matcher/internal/scoring"
)

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights must be valid: %v", err)
	}

	bad := Weights{Skills: 0.5, Responsibility: 0.3, Experience: 0.19}
	err := bad.Validate()
	if err == nil {
		t.Fatalf("expected invalid weights to be rejected")
	}

	var invalid *InvalidWeightsError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidWeightsError, got %T", err)
	}
}

func TestNewRankerRejectsBadWeights(t *testing.T) {
	if _, err := NewRanker(Weights{Skills: 1, Responsibility: 1, Experience: 1}); err == nil {
		t.Fatalf("expected constructor to reject bad weights")
	}
}

func TestComposeWeightedScore(t *testing.T) {
	ranker, err := NewRanker(DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scores := &scoring.SubScores{
		SkillOverlap:   1.0 / 3.0,
		Responsibility: 0.5,
		Experience:     1.0,
		ExperienceFit:  scoring.ExperienceMeets,
	}

	result := ranker.Compose("c1", "j1", scores)

	// 0.5*(1/3) + 0.3*0.5 + 0.2*1.0 = 0.51666... -> 51.67
	if result.Score != 51.67 {
		t.Fatalf("expected composite 51.67, got %v", result.Score)
	}
}

func TestComposeScoreBounds(t *testing.T) {
	ranker, _ := NewRanker(DefaultWeights())

	zero := ranker.Compose("c1", "j1", &scoring.SubScores{})
	if zero.Score != 0 {
		t.Fatalf("expected 0, got %v", zero.Score)
	}

	full := ranker.Compose("c1", "j1", &scoring.SubScores{SkillOverlap: 1, Responsibility: 1, Experience: 1})
	if full.Score != 100 {
		t.Fatalf("expected 100, got %v", full.Score)
	}
}

func TestComposeDeterministic(t *testing.T) {
	ranker, _ := NewRanker(DefaultWeights())
	scores := &scoring.SubScores{SkillOverlap: 0.7, Responsibility: 0.4, Experience: 0.6}

	first := ranker.Compose("c1", "j1", scores)
	second := ranker.Compose("c1", "j1", scores)

	if first.Score != second.Score || first.Rationale != second.Rationale {
		t.Fatalf("expected identical results for identical inputs")
	}
}

func TestRationaleTemplate(t *testing.T) {
	ranker, _ := NewRanker(DefaultWeights())
	scores := &scoring.SubScores{
		SkillOverlap: 2.0 / 3.0,
		Skills: []scoring.SkillMatch{
			{JobSkill: "Python", CandidateSkill: "python", Kind: scoring.MatchExact},
			{JobSkill: "React.js", CandidateSkill: "react", Kind: scoring.MatchPartial},
			{JobSkill: "AWS", Kind: scoring.MatchNone},
		},
		Experience:    1.0,
		ExperienceFit: scoring.ExperienceMeets,
	}

	rationale := ranker.Compose("c1", "j1", scores).Rationale

	if !strings.Contains(rationale, "Matches 2/3 required skills") {
		t.Fatalf("unexpected rationale: %q", rationale)
	}
	if !strings.Contains(rationale, "Python") || !strings.Contains(rationale, "React.js") {
		t.Fatalf("expected matched skills listed: %q", rationale)
	}
	if !strings.Contains(rationale, "meets experience requirement") {
		t.Fatalf("expected experience flag in rationale: %q", rationale)
	}
}

func TestLessTieBreaks(t *testing.T) {
	ranker, _ := NewRanker(DefaultWeights())

	// Same composite, higher skill overlap wins.
	a := ranker.Compose("c1", "j1", &scoring.SubScores{SkillOverlap: 0.8, Responsibility: 0.0, Experience: 0.5})
	b := ranker.Compose("c2", "j1", &scoring.SubScores{SkillOverlap: 0.6, Responsibility: 1.0 / 3.0, Experience: 0.5})
	a.SetSequence(1)
	b.SetSequence(0)

	if a.Score != b.Score {
		t.Fatalf("test setup expects equal composites, got %v vs %v", a.Score, b.Score)
	}
	if !Less(a, b) {
		t.Fatalf("expected higher skill overlap to win the tie")
	}
}

func TestLessStableOnFullTie(t *testing.T) {
	ranker, _ := NewRanker(DefaultWeights())
	scores := &scoring.SubScores{SkillOverlap: 0.5, Responsibility: 0.5, Experience: 0.5}

	first := ranker.Compose("zeta", "j1", scores)
	second := ranker.Compose("alpha", "j1", scores)
	first.SetSequence(0)
	second.SetSequence(1)

	results := []*Result{second, first}
	sort.SliceStable(results, func(i, j int) bool { return Less(results[i], results[j]) })

	// Input order wins over any identifier ordering.
	if results[0].CandidateID != "zeta" {
		t.Fatalf("expected first-seen result to rank first, got %s", results[0].CandidateID)
	}
}

func TestComposeEmpty(t *testing.T) {
	ranker, _ := NewRanker(DefaultWeights())

	result := ranker.ComposeEmpty("c1", "j1")
	if result.Score != 0 {
		t.Fatalf("expected zero score, got %v", result.Score)
	}
	if result.Rationale == "" {
		t.Fatalf("expected explanatory rationale")
	}
}
