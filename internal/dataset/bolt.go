package dataset

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/andresuchdata/stocklens/internal/domain"
)

var (
	snapshotBucket = []byte("snapshot")
	currentKey     = []byte("current")
	versionKey     = []byte("version")
)

// BoltStore persists the snapshot in a single bbolt file so it survives
// restarts.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory for bolt db: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Replace(_ context.Context, records []domain.BrandRecord, meta domain.SnapshotMeta) (domain.Snapshot, error) {
	var snap domain.Snapshot

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(snapshotBucket)
		if bucket == nil {
			return fmt.Errorf("snapshot bucket not found")
		}

		var version int64
		if raw := bucket.Get(versionKey); len(raw) == 8 {
			version = int64(binary.BigEndian.Uint64(raw))
		}
		version++

		snap = newSnapshot(version, records, meta)
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(version))
		if err := bucket.Put(versionKey, buf); err != nil {
			return err
		}
		return bucket.Put(currentKey, data)
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return snap, nil
}

func (s *BoltStore) Current(_ context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(snapshotBucket)
		if bucket == nil {
			return fmt.Errorf("snapshot bucket not found")
		}
		data := bucket.Get(currentKey)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if !found {
		return domain.Snapshot{}, errNoDataset()
	}
	return snap, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
