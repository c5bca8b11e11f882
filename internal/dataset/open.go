package dataset

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stocklens/internal/config"
	"github.com/andresuchdata/stocklens/internal/repository/postgres"
)

// Open builds the store selected by cfg.Dataset.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	backend := cfg.Dataset.Backend
	log.Info().Str("backend", backend).Msg("opening dataset store")

	switch backend {
	case "", config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendBolt:
		return NewBoltStore(cfg.Dataset.BoltPath)
	case config.BackendRedis:
		return NewRedisStore(cfg.Redis)
	case config.BackendPostgres:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		repo := postgres.NewSnapshotRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown dataset backend %q", backend)
	}
}
