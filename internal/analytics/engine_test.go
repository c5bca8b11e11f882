package analytics

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stocklens/internal/domain"
)

func TestAnalyzeOverstockScenario(t *testing.T) {
	records := []domain.BrandRecord{
		{Index: 1, Name: "Heavy", MonthlySaleValue: 100, StockValueToday: 350},
		{Index: 2, Name: "Fine", MonthlySaleValue: 100, StockValueToday: 300},
	}

	summary, findings, err := Analyze(records, 3.0)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "Heavy", f.BrandName)
	assert.InDelta(t, 300, f.Threshold, 1e-9)
	assert.InDelta(t, 50, f.OverstockValue, 1e-9)
	ratio, ok := f.StockRatio.Value()
	require.True(t, ok)
	assert.InDelta(t, 3.5, ratio, 1e-9)

	assert.Equal(t, 2, summary.TotalBrands)
	assert.Equal(t, 1, summary.OverstockedBrands)
	assert.InDelta(t, 650, summary.TotalStockValue, 1e-9)
	assert.InDelta(t, 50, summary.TotalOverstockedValue, 1e-9)
}

func TestAnalyzeZeroAverageIsUnbounded(t *testing.T) {
	_, findings, err := Analyze([]domain.BrandRecord{
		{Index: 1, Name: "Dead stock", StockValueToday: 10},
		{Index: 2, Name: "Empty"},
	}, 3.0)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.True(t, findings[0].StockRatio.IsUnbounded())
	assert.Equal(t, math.MaxFloat64, findings[0].StockRatio.Display())
	assert.InDelta(t, 10, findings[0].OverstockValue, 1e-9)
}

func TestAnalyzeRejectsMultiplier(t *testing.T) {
	for _, m := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, _, err := Analyze(nil, m)
		assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration), "multiplier %v", m)
	}
}

func TestAnalyzeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		multiplier := 0.1 + rng.Float64()*10
		records := make([]domain.BrandRecord, n)
		var wantTotal float64
		for i := range records {
			records[i] = domain.BrandRecord{
				Index:            int64(i + 1),
				Name:             "brand",
				MonthlySaleValue: float64(rng.Intn(5)) * rng.Float64() * 1000,
				StockValueToday:  rng.Float64() * 5000,
			}
			wantTotal += records[i].StockValueToday
		}

		summary, findings, err := Analyze(records, multiplier)
		require.NoError(t, err)
		assert.InDelta(t, wantTotal, summary.TotalStockValue, 1e-6)

		flagged := map[int64]bool{}
		for _, f := range findings {
			flagged[f.Index] = true
			assert.Greater(t, f.OverstockValue, 0.0)
		}
		for _, rec := range records {
			want := rec.StockValueToday > rec.MonthlySaleValue*multiplier
			assert.Equal(t, want, flagged[rec.Index], "brand %d", rec.Index)
		}
	}
}

func TestTrend(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 8, day, 0, 0, 0, 0, time.UTC) }

	var a, b domain.DailySales
	a.Set(d(26), 2)
	a.Set(d(25), 3)
	b.Set(d(25), 4)
	b.Set(d(27), 1)

	trend := Trend([]domain.BrandRecord{{DailySales: a}, {DailySales: b}})
	assert.Equal(t, []domain.TrendPoint{
		{Date: "2025-08-25", Units: 7},
		{Date: "2025-08-26", Units: 2},
		{Date: "2025-08-27", Units: 1},
	}, trend)
}

func TestRankTieBreaksOnIndex(t *testing.T) {
	ranked := Rank([]domain.BrandRecord{
		{Index: 578, Name: "C", MonthlySaleValue: 100},
		{Index: 412, Name: "B", MonthlySaleValue: 100},
		{Index: 101, Name: "A", MonthlySaleValue: 50},
		{Index: 9, Name: "Top", MonthlySaleValue: 900},
	})

	got := make([]int64, 0, len(ranked))
	for _, r := range ranked {
		got = append(got, r.Index)
	}
	assert.Equal(t, []int64{9, 412, 578, 101}, got)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 4, ranked[3].Rank)
}

func TestDetails(t *testing.T) {
	details := Details([]domain.BrandRecord{
		{Index: 5, Name: "Later", Rate: 10, MonthlySaleValue: 300, QuantityCurrentStock: 20, StockValueToday: 200},
		{Index: 2, Name: "No rate", MonthlySaleValue: 40},
	})

	require.Len(t, details, 2)
	assert.Equal(t, int64(2), details[0].Index)
	assert.Nil(t, details[0].MonthlySalesQuantity)

	later := details[1]
	require.NotNil(t, later.MonthlySalesQuantity)
	assert.InDelta(t, 30, *later.MonthlySalesQuantity, 1e-9)
	assert.InDelta(t, 1, *later.AvgDailySales, 1e-9)
	days, ok := later.DaysOfStock.Value()
	require.True(t, ok)
	assert.InDelta(t, 20, days, 1e-9)
}
