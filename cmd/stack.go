package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hireloop/talent-matcher/internal/embedding"
	"github.com/hireloop/talent-matcher/internal/matching"
	"github.com/hireloop/talent-matcher/internal/profile"
	profilememory "github.com/hireloop/talent-matcher/internal/profile/memory"
	"github.com/hireloop/talent-matcher/internal/profile/postgres"
	"github.com/hireloop/talent-matcher/internal/scoring"
	"github.com/hireloop/talent-matcher/internal/secrets"
	"github.com/hireloop/talent-matcher/internal/vectorindex"
	indexmemory "github.com/hireloop/talent-matcher/internal/vectorindex/memory"
	"github.com/hireloop/talent-matcher/internal/vectorindex/qdrant"

	"go.uber.org/zap"
)

// vectorBackend is the full surface the cli needs from a vector index: bulk
// indexing, pool pre-filtering and pairwise comparison.
type vectorBackend interface {
	vectorindex.Indexer
	vectorindex.Searcher
	vectorindex.Comparer
}

// collectionPreparer is implemented by remote indexes that need their
// collections created before the first upsert.
type collectionPreparer interface {
	EnsureCollection(ctx context.Context, collection string, dimension int) error
}

// matchingStack bundles everything one matching run needs.
type matchingStack struct {
	store        profile.Source
	embedder     embedding.Embedder
	index        vectorBackend
	orchestrator *matching.Orchestrator
	logger       *zap.Logger

	closeStore func()
}

func buildStack(ctx context.Context, config *Config, logger *zap.Logger) (*matchingStack, error) {
	store, closeStore, err := buildStore(ctx, config.Store, logger)
	if err != nil {
		return nil, err
	}

	embedder := embedding.NewTFIDF()

	index, err := buildIndex(config.Index, embedder, logger)
	if err != nil {
		closeStore()
		return nil, err
	}

	scorer := scoring.NewScorer(index)

	return &matchingStack{
		store:        store,
		embedder:     embedder,
		index:        index,
		orchestrator: matching.NewOrchestrator(store, index, scorer, logger),
		logger:       logger,
		closeStore:   closeStore,
	}, nil
}

func (s *matchingStack) close() {
	if s.closeStore != nil {
		s.closeStore()
	}
}

func buildStore(ctx context.Context, cfg *StoreConfig, logger *zap.Logger) (profile.Source, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("store configuration is required")
	}

	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	switch backend {
	case "", "file":
		if strings.TrimSpace(cfg.File) == "" {
			return nil, nil, errors.New("store.file is required for the file backend")
		}
		store, err := profilememory.LoadFile(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("loaded profile file", zap.String("path", cfg.File))
		return store, func() {}, nil

	case "postgres":
		dsnSource := secrets.Source{Name: "postgres dsn", Env: "DATABASE_URL"}
		if cfg.Postgres != nil {
			dsnSource.Value = cfg.Postgres.DSN
			dsnSource.File = cfg.Postgres.DSNFile
		}

		dsn, err := secrets.Load(dsnSource)
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set store.postgres.dsn or DATABASE_URL)", err)
		}

		store, err := postgres.New(ctx, dsn, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

func buildIndex(cfg *IndexConfig, embedder embedding.Embedder, logger *zap.Logger) (vectorBackend, error) {
	backend := ""
	if cfg != nil {
		backend = strings.TrimSpace(strings.ToLower(cfg.Backend))
	}

	switch backend {
	case "", "memory":
		return indexmemory.NewIndex(embedder), nil

	case "qdrant":
		if cfg.Qdrant == nil || strings.TrimSpace(cfg.Qdrant.URL) == "" {
			return nil, errors.New("index.qdrant.url is required for the qdrant backend")
		}

		qcfg := qdrant.Config{
			URL:     cfg.Qdrant.URL,
			Timeout: time.Duration(cfg.Qdrant.TimeoutSeconds) * time.Second,
		}

		if strings.TrimSpace(cfg.Qdrant.APIKeyFile) != "" {
			apiKey, err := secrets.Load(secrets.Source{
				Name: "qdrant api key",
				File: cfg.Qdrant.APIKeyFile,
			})
			if err != nil {
				return nil, err
			}
			qcfg.APIKey = apiKey
		}

		return qdrant.New(qcfg, embedder, logger), nil

	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Backend)
	}
}

// indexProfiles loads every profile document into the vector index. The
// embedder is fitted on the full corpus first so remote collections can be
// created with the right dimension.
func (s *matchingStack) indexProfiles(ctx context.Context) error {
	type doc struct {
		collection string
		id         string
		text       string
	}

	candidateIDs, err := s.store.CandidateIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing candidates: %w", err)
	}
	jobIDs, err := s.store.JobIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}

	docs := make([]doc, 0, len(candidateIDs)+len(jobIDs))
	corpus := make([]string, 0, len(candidateIDs)+len(jobIDs))

	for _, id := range candidateIDs {
		candidate, err := s.store.Candidate(ctx, id)
		if err != nil {
			return fmt.Errorf("fetching candidate %s: %w", id, err)
		}
		text := candidate.Document()
		docs = append(docs, doc{collection: vectorindex.CollectionCandidates, id: id, text: text})
		corpus = append(corpus, text)
	}

	for _, id := range jobIDs {
		job, err := s.store.Job(ctx, id)
		if err != nil {
			return fmt.Errorf("fetching job %s: %w", id, err)
		}
		text := job.Document()
		docs = append(docs, doc{collection: vectorindex.CollectionJobs, id: id, text: text})
		corpus = append(corpus, text)
	}

	if len(docs) == 0 {
		s.logger.Warn("no profiles to index")
		return nil
	}

	if err := s.embedder.Prepare(corpus); err != nil {
		return fmt.Errorf("preparing embedder: %w", err)
	}

	if preparer, ok := s.index.(collectionPreparer); ok {
		for _, collection := range []string{vectorindex.CollectionCandidates, vectorindex.CollectionJobs} {
			if err := preparer.EnsureCollection(ctx, collection, s.embedder.Dimension()); err != nil {
				return fmt.Errorf("preparing collection %s: %w", collection, err)
			}
		}
	}

	for _, d := range docs {
		if err := s.index.Upsert(ctx, d.collection, d.id, d.text); err != nil {
			return fmt.Errorf("indexing %s/%s: %w", d.collection, d.id, err)
		}
	}

	s.logger.Info("indexed profiles",
		zap.Int("candidates", len(candidateIDs)),
		zap.Int("jobs", len(jobIDs)),
		zap.String("embedder", s.embedder.Name()),
		zap.Int("dimension", s.embedder.Dimension()),
	)

	return nil
}
