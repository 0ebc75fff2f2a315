package profile

import (
	"context"
	"errors"
)

// ErrNotFound is returned by sources when no record exists for the given id.
// In batch matching a missing profile is skipped and recorded, never fatal.
var ErrNotFound = errors.New("profile not found")

// Source supplies structured candidate and job records. Implementations must
// be safe for concurrent reads.
type Source interface {
	Candidate(ctx context.Context, id string) (*Candidate, error)
	Job(ctx context.Context, id string) (*Job, error)
	CandidateIDs(ctx context.Context) ([]string, error)
	JobIDs(ctx context.Context) ([]string, error)
}
