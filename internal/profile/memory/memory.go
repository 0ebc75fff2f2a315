// Package memory provides a file-backed profile source used for demos and
// tests. Records are loaded once from a JSON document and served from memory.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/hireloop/talent-matcher/internal/profile"
)

// Store keeps all profiles in memory. Safe for concurrent reads.
type Store struct {
	mu         sync.RWMutex
	candidates map[string]*profile.Candidate
	jobs       map[string]*profile.Job

	candidateOrder []string
	jobOrder       []string
}

func NewStore() *Store {
	return &Store{
		candidates: make(map[string]*profile.Candidate),
		jobs:       make(map[string]*profile.Job),
	}
}

// LoadFile reads a JSON document with top-level "candidates" and "jobs" arrays
// and returns a populated store. Records are normalized and validated on load.
func LoadFile(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening profile file: %w", err)
	}
	defer file.Close()

	var raw struct {
		Candidates []map[string]any `json:"candidates"`
		Jobs       []map[string]any `json:"jobs"`
	}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding profile file %q: %w", path, err)
	}

	store := NewStore()

	for _, item := range raw.Candidates {
		var candidate profile.Candidate
		if err := decode(item, &candidate); err != nil {
			return nil, fmt.Errorf("decoding candidate record: %w", err)
		}
		if err := store.AddCandidate(&candidate); err != nil {
			return nil, err
		}
	}

	for _, item := range raw.Jobs {
		var job profile.Job
		if err := decode(item, &job); err != nil {
			return nil, fmt.Errorf("decoding job record: %w", err)
		}
		if err := store.AddJob(&job); err != nil {
			return nil, err
		}
	}

	return store, nil
}

func decode(item map[string]any, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(item)
}

func (s *Store) AddCandidate(c *profile.Candidate) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[c.ID]; !ok {
		s.candidateOrder = append(s.candidateOrder, c.ID)
	}
	s.candidates[c.ID] = c
	return nil
}

func (s *Store) AddJob(j *profile.Job) error {
	j.Normalize()
	if err := j.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; !ok {
		s.jobOrder = append(s.jobOrder, j.ID)
	}
	s.jobs[j.ID] = j
	return nil
}

func (s *Store) Candidate(_ context.Context, id string) (*profile.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidate, ok := s.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s: %w", id, profile.ErrNotFound)
	}
	return candidate, nil
}

func (s *Store) Job(_ context.Context, id string) (*profile.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, profile.ErrNotFound)
	}
	return job, nil
}

func (s *Store) CandidateIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.candidateOrder))
	copy(ids, s.candidateOrder)
	return ids, nil
}

func (s *Store) JobIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.jobOrder))
	copy(ids, s.jobOrder)
	return ids, nil
}
