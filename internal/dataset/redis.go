package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stocklens/internal/config"
	"github.com/andresuchdata/stocklens/internal/domain"
)

// RedisStore keeps the snapshot as a JSON payload under a fixed key so
// several API replicas share one current dataset.
type RedisStore struct {
	client     *redis.Client
	currentKey string
	versionKey string
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return newRedisStore(client, cfg.KeyPrefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client:     client,
		currentKey: prefix + "snapshot:current",
		versionKey: prefix + "snapshot:version",
	}
}

// maxReplaceAttempts bounds optimistic retries when another writer bumps
// the version between WATCH and EXEC.
const maxReplaceAttempts = 10

// Replace writes the next version and its snapshot in one MULTI/EXEC under
// WATCH, so the version key and the stored snapshot never disagree.
func (s *RedisStore) Replace(ctx context.Context, records []domain.BrandRecord, meta domain.SnapshotMeta) (domain.Snapshot, error) {
	var snap domain.Snapshot
	replace := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, s.versionKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis version read failed: %w", err)
		}
		version, err := nextVersion(raw)
		if err != nil {
			return err
		}

		snap = newSnapshot(version, records, meta)
		payload, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.versionKey, version, 0)
			pipe.Set(ctx, s.currentKey, payload, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxReplaceAttempts; attempt++ {
		err := s.client.Watch(ctx, replace, s.versionKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("redis replace failed: %w", err)
		}
		return snap, nil
	}
	return domain.Snapshot{}, fmt.Errorf("redis replace failed: version changed on each of %d attempts", maxReplaceAttempts)
}

// nextVersion parses the stored version counter; a missing key starts at 1.
func nextVersion(raw string) (int64, error) {
	if raw == "" {
		return 1, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt snapshot version %q: %w", raw, err)
	}
	return v + 1, nil
}

func (s *RedisStore) Current(ctx context.Context) (domain.Snapshot, error) {
	payload, err := s.client.Get(ctx, s.currentKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, errNoDataset()
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis get failed: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func buildRedisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.Port
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}
