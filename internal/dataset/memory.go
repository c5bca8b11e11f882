package dataset

import (
	"context"
	"sync"

	"github.com/andresuchdata/stocklens/internal/domain"
)

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	current  *domain.Snapshot
	versions int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Replace(_ context.Context, records []domain.BrandRecord, meta domain.SnapshotMeta) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.versions++
	snap := newSnapshot(s.versions, records, meta)
	s.current = &snap
	return snap, nil
}

func (s *MemoryStore) Current(_ context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return domain.Snapshot{}, errNoDataset()
	}
	snap := *s.current
	snap.Records = domain.CloneRecords(s.current.Records)
	return snap, nil
}

func (s *MemoryStore) Close() error { return nil }
