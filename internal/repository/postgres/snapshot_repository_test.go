package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stocklens/internal/domain"
)

func TestBuildSnapshot(t *testing.T) {
	head := snapshotRow{
		ID:         "c0ffee00-0000-4000-8000-000000000001",
		Version:    3,
		SourceName: "stock.xlsx",
		Layout:     "column",
		UploadedAt: time.Date(2025, 8, 25, 9, 0, 0, 0, time.UTC),
		Rejections: []byte(`[{"row":4,"brand":"Bad","rule":"NotNumeric","detail":"rate is not a number"}]`),
	}
	rows := []brandRow{
		{Position: 0, Index: 101, Name: "Royal Stag", Rate: 100, WholesaleRate: 100, QuantityCurrentStock: 10,
			MonthlySaleValue: 350, StockValueToday: 1000, DailySales: []byte(`[{"date":"2025-08-25","quantity":7}]`)},
		{Position: 1, Index: 102, Name: "Old Monk", Rate: 50, WholesaleRate: 50, DailySales: []byte(`[]`), SyntheticIndex: true},
	}

	snap, err := buildSnapshot(head, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Version)
	assert.Equal(t, "stock.xlsx", snap.SourceName)
	require.Len(t, snap.Rejections, 1)
	assert.Equal(t, "Bad", snap.Rejections[0].Brand)

	require.Len(t, snap.Records, 2)
	q, ok := snap.Records[0].DailySales.Get(time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 7.0, q)
	assert.Equal(t, "Old Monk", snap.Records[1].Name)
	assert.True(t, snap.Records[1].SyntheticIndex)
}

func TestBuildSnapshotWithoutRecords(t *testing.T) {
	_, err := buildSnapshot(snapshotRow{ID: "orphan", Version: 1}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoDataset), "got %v", err)
}

func TestBuildSnapshotBadSales(t *testing.T) {
	_, err := buildSnapshot(snapshotRow{ID: "x"}, []brandRow{{Name: "A", DailySales: []byte(`{`)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily sales for A")
}
