package ai

import (
	"context"

	"github.com/hireloop/talent-matcher/internal/profile"
	"github.com/hireloop/talent-matcher/internal/ranking"
)

// Narrator turns a scored pair into prose for recruiters. Implementations call
// an external model, so a failure here must never invalidate the score itself.
type Narrator interface {
	Narrate(ctx context.Context, candidate *profile.Candidate, job *profile.Job, result *ranking.Result) (*ranking.Narrative, error)
}
