// Package analytics derives overstock findings, sales trends and the brand
// ranking from a normalized record set. Every function here is pure.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stocklens/internal/domain"
)

// DefaultOverstockMultiplier is used when no multiplier is configured.
const DefaultOverstockMultiplier = 3.0

// ValidateMultiplier rejects multipliers outside (0, ∞).
func ValidateMultiplier(multiplier float64) error {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return domain.NewError(domain.KindInvalidConfiguration,
			"overstock multiplier must be a positive number, got %v", multiplier)
	}
	return nil
}

// Analyze computes the summary and the overstock findings for records.
// Findings are ordered by overstock value descending, then index.
func Analyze(records []domain.BrandRecord, multiplier float64) (*domain.AnalyticsSummary, []domain.OverstockFinding, error) {
	if err := ValidateMultiplier(multiplier); err != nil {
		return nil, nil, err
	}

	var (
		totalStock     = decimal.Zero
		totalOverstock = decimal.Zero
		findings       = make([]domain.OverstockFinding, 0)
	)

	for _, rec := range records {
		totalStock = totalStock.Add(decimal.NewFromFloat(rec.StockValueToday))

		finding, flagged := checkOverstock(rec, multiplier)
		if !flagged {
			continue
		}
		totalOverstock = totalOverstock.Add(decimal.NewFromFloat(finding.OverstockValue))
		findings = append(findings, finding)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].OverstockValue != findings[j].OverstockValue {
			return findings[i].OverstockValue > findings[j].OverstockValue
		}
		return findings[i].Index < findings[j].Index
	})

	summary := &domain.AnalyticsSummary{
		TotalBrands:           len(records),
		TotalStockValue:       totalStock.InexactFloat64(),
		OverstockedBrands:     len(findings),
		TotalOverstockedValue: totalOverstock.InexactFloat64(),
		Multiplier:            multiplier,
		Trend:                 Trend(records),
		Ranking:               Rank(records),
	}
	return summary, findings, nil
}

// checkOverstock flags rec iff stock_value_today > monthly_sale_value * multiplier.
func checkOverstock(rec domain.BrandRecord, multiplier float64) (domain.OverstockFinding, bool) {
	avg := rec.MonthlySaleValue
	threshold := avg * multiplier
	if !(rec.StockValueToday > threshold) {
		return domain.OverstockFinding{}, false
	}
	return domain.OverstockFinding{
		Index:             rec.Index,
		BrandName:         rec.Name,
		CurrentStockValue: rec.StockValueToday,
		MonthlyAvgSale:    avg,
		Threshold:         threshold,
		StockRatio:        domain.Divide(rec.StockValueToday, avg),
		OverstockValue:    rec.StockValueToday - threshold,
	}, true
}

// Trend sums daily quantities across brands for every observed date, in
// ascending date order. A brand without an entry for a date adds zero.
func Trend(records []domain.BrandRecord) []domain.TrendPoint {
	totals := map[time.Time]float64{}
	for _, rec := range records {
		for _, sale := range rec.DailySales {
			totals[sale.Date] += sale.Quantity
		}
	}

	dates := make([]time.Time, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	points := make([]domain.TrendPoint, 0, len(dates))
	for _, d := range dates {
		points = append(points, domain.TrendPoint{Date: d.Format(domain.DateKeyLayout), Units: totals[d]})
	}
	return points
}

// Rank orders every brand by monthly sale value descending; ties go to the
// lower index.
func Rank(records []domain.BrandRecord) []domain.RankedBrand {
	sorted := make([]domain.BrandRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MonthlySaleValue != sorted[j].MonthlySaleValue {
			return sorted[i].MonthlySaleValue > sorted[j].MonthlySaleValue
		}
		return sorted[i].Index < sorted[j].Index
	})

	ranked := make([]domain.RankedBrand, len(sorted))
	for i, rec := range sorted {
		ranked[i] = domain.RankedBrand{
			Rank:             i + 1,
			Index:            rec.Index,
			Name:             rec.Name,
			MonthlySaleValue: rec.MonthlySaleValue,
			StockValueToday:  rec.StockValueToday,
			StockRatio:       domain.Divide(rec.StockValueToday, rec.MonthlySaleValue),
		}
	}
	return ranked
}
