// Package postgres implements a profile source backed by PostgreSQL. Extracted
// skill and role attributes are stored as jsonb alongside the raw text.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hireloop/talent-matcher/internal/profile"
)

const connectTimeout = 10 * time.Second

type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to the database described by dsn and verifies the connection.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Candidate(ctx context.Context, id string) (*profile.Candidate, error) {
	const query = `
		SELECT id, name, skills, experience_years, roles, raw_text
		FROM candidates
		WHERE id = $1`

	var candidate profile.Candidate
	row := s.pool.QueryRow(ctx, query, id)
	err := row.Scan(
		&candidate.ID,
		&candidate.Name,
		&candidate.Skills,
		&candidate.ExperienceYears,
		&candidate.Roles,
		&candidate.RawText,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("candidate %s: %w", id, profile.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching candidate %s: %w", id, err)
	}

	candidate.Normalize()
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("stored candidate is invalid: %w", err)
	}

	return &candidate, nil
}

func (s *Store) Job(ctx context.Context, id string) (*profile.Job, error) {
	const query = `
		SELECT id, title, skills, responsibilities, required_years, raw_text
		FROM jobs
		WHERE id = $1`

	var job profile.Job
	row := s.pool.QueryRow(ctx, query, id)
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Skills,
		&job.Responsibilities,
		&job.RequiredYears,
		&job.RawText,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, profile.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching job %s: %w", id, err)
	}

	job.Normalize()
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("stored job is invalid: %w", err)
	}

	return &job, nil
}

func (s *Store) CandidateIDs(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT id FROM candidates ORDER BY created_at, id`)
}

func (s *Store) JobIDs(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT id FROM jobs ORDER BY created_at, id`)
}

func (s *Store) listIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing profile ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning profile id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading profile ids: %w", err)
	}

	s.logger.Debug("listed profile ids", zap.Int("count", len(ids)))

	return ids, nil
}
