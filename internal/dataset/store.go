// Package dataset owns the single current snapshot of brand records.
// Every upload replaces the snapshot wholesale; concurrent replacements are
// last-write-wins.
package dataset

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/stocklens/internal/domain"
)

// Store holds the current dataset snapshot.
type Store interface {
	// Replace swaps in records as the new current snapshot and returns it.
	Replace(ctx context.Context, records []domain.BrandRecord, meta domain.SnapshotMeta) (domain.Snapshot, error)
	// Current returns the current snapshot or domain.ErrNoDataset.
	Current(ctx context.Context) (domain.Snapshot, error)
	Close() error
}

var now = func() time.Time { return time.Now().UTC() }

func newSnapshot(version int64, records []domain.BrandRecord, meta domain.SnapshotMeta) domain.Snapshot {
	return domain.Snapshot{
		ID:         uuid.NewString(),
		Version:    version,
		SourceName: meta.SourceName,
		Layout:     string(meta.Layout),
		UploadedAt: now(),
		Records:    domain.CloneRecords(records),
		Rejections: meta.Rejections,
	}
}

func errNoDataset() error {
	return domain.NewError(domain.KindNoDataset, "no dataset has been uploaded yet")
}
