// Package demand computes per-brand reorder quantities and urgency.
package demand

import (
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/stocklens/internal/domain"
)

const (
	// DaysPerMonth converts monthly quantities to daily velocity.
	DaysPerMonth = 30
	// TargetStockDays is the stock horizon shown alongside recommendations.
	TargetStockDays = 45
	// HighUrgencyDays is the days-of-stock bound below which urgency is HIGH.
	HighUrgencyDays = 15
	// MediumUrgencyDays is the inclusive upper bound of the MEDIUM band.
	MediumUrgencyDays = 45

	ReasonZeroRate = "zero rate"
)

// QuantitySource records how the monthly sales quantity was derived.
type QuantitySource string

const (
	SourceCompleteMonth QuantitySource = "complete_month"
	SourceValueOverRate QuantitySource = "value_over_rate"
	SourceNoSales       QuantitySource = "no_sales"
	SourceUnknown       QuantitySource = "unknown"
)

// Metrics are the intermediate figures computed for one brand.
type Metrics struct {
	MonthlySalesQuantity float64
	Source               QuantitySource
	AvgDailySales        float64
	DaysOfStock          domain.Ratio
	QuantityToBeDemanded float64
	Urgency              domain.Urgency
	DaysAnalyzed         int
}

// Known reports whether the monthly quantity could be derived.
func (m Metrics) Known() bool { return m.Source != SourceUnknown }

// Calculator derives demand metrics for a brand.
type Calculator struct {
	daysPerMonth float64
}

func NewCalculator() *Calculator {
	return &Calculator{daysPerMonth: DaysPerMonth}
}

// Calculate computes the demand metrics for rec.
func (c *Calculator) Calculate(rec domain.BrandRecord) Metrics {
	m := Metrics{DaysAnalyzed: len(rec.DailySales)}

	// 1. Monthly sales in quantity units
	m.MonthlySalesQuantity, m.Source = monthlyQuantity(rec)
	if !m.Known() {
		m.DaysOfStock = domain.Unbounded()
		m.Urgency = domain.UrgencyLow
		return m
	}

	// 2. Average daily sales
	m.AvgDailySales = m.MonthlySalesQuantity / c.daysPerMonth

	// 3. Days of stock remaining
	m.DaysOfStock = domain.Divide(rec.QuantityCurrentStock, m.AvgDailySales)
	if m.AvgDailySales == 0 {
		m.DaysOfStock = domain.Unbounded()
	}

	// 4. Reorder quantity: one month of demand minus what is on hand
	m.QuantityToBeDemanded = math.Max(0, m.MonthlySalesQuantity-rec.QuantityCurrentStock)

	// 5. Urgency
	m.Urgency = Classify(m.DaysOfStock)
	return m
}

// Classify buckets days of stock: HIGH below 15, MEDIUM from 15 to 45
// inclusive, LOW otherwise. Unbounded is LOW.
func Classify(days domain.Ratio) domain.Urgency {
	d, ok := days.Value()
	switch {
	case !ok:
		return domain.UrgencyLow
	case d < HighUrgencyDays:
		return domain.UrgencyHigh
	case d <= MediumUrgencyDays:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// MonthlySalesQuantity returns the brand's monthly sales in units: the sum
// over the most recent calendar month whose every day is present, else
// monthly_sale_value / rate. It reports false when neither is available.
func MonthlySalesQuantity(rec domain.BrandRecord) (float64, bool) {
	q, src := monthlyQuantity(rec)
	return q, src != SourceUnknown
}

func monthlyQuantity(rec domain.BrandRecord) (float64, QuantitySource) {
	if q, ok := latestCompleteMonth(rec.DailySales); ok {
		return q, SourceCompleteMonth
	}
	switch {
	case rec.Rate > 0:
		return rec.MonthlySaleValue / rec.Rate, SourceValueOverRate
	case rec.MonthlySaleValue == 0:
		return 0, SourceNoSales
	default:
		return 0, SourceUnknown
	}
}

type yearMonth struct {
	year  int
	month time.Month
}

func latestCompleteMonth(sales domain.DailySales) (float64, bool) {
	days := map[yearMonth]map[int]bool{}
	totals := map[yearMonth]float64{}
	for _, s := range sales {
		ym := yearMonth{year: s.Date.Year(), month: s.Date.Month()}
		if days[ym] == nil {
			days[ym] = map[int]bool{}
		}
		days[ym][s.Date.Day()] = true
		totals[ym] += s.Quantity
	}

	var (
		best  yearMonth
		found bool
	)
	for ym, seen := range days {
		if len(seen) != daysIn(ym) {
			continue
		}
		if !found || ym.year > best.year || (ym.year == best.year && ym.month > best.month) {
			best, found = ym, true
		}
	}
	if !found {
		return 0, false
	}
	return totals[best], true
}

func daysIn(ym yearMonth) int {
	return time.Date(ym.year, ym.month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Recommend returns a reorder recommendation for every brand with a
// positive gap between a month of demand and current stock, ordered by
// urgency, then quantity descending, then index. Brands whose monthly
// quantity cannot be derived are listed for review instead.
func Recommend(records []domain.BrandRecord) domain.DemandPlan {
	return NewCalculator().Plan(records)
}

// Plan is Recommend using c.
func (c *Calculator) Plan(records []domain.BrandRecord) domain.DemandPlan {
	plan := domain.DemandPlan{
		TargetStockDays: TargetStockDays,
		Recommendations: make([]domain.DemandRecommendation, 0),
		Review:          make([]domain.ReviewFlag, 0),
	}

	for _, rec := range records {
		m := c.Calculate(rec)
		if !m.Known() {
			plan.Review = append(plan.Review, domain.ReviewFlag{Index: rec.Index, BrandName: rec.Name, Reason: ReasonZeroRate})
			continue
		}
		if m.QuantityToBeDemanded == 0 {
			continue
		}
		plan.Recommendations = append(plan.Recommendations, domain.DemandRecommendation{
			Index:                rec.Index,
			BrandName:            rec.Name,
			Rate:                 rec.Rate,
			WholesaleRate:        rec.WholesaleRate,
			QuantityCurrentStock: rec.QuantityCurrentStock,
			MonthlySalesQuantity: m.MonthlySalesQuantity,
			AvgDailySales:        m.AvgDailySales,
			DaysOfStock:          m.DaysOfStock,
			QuantityToBeDemanded: m.QuantityToBeDemanded,
			Urgency:              m.Urgency,
		})
	}

	recs := plan.Recommendations
	sort.SliceStable(recs, func(i, j int) bool {
		if ri, rj := recs[i].Urgency.Rank(), recs[j].Urgency.Rank(); ri != rj {
			return ri < rj
		}
		if recs[i].QuantityToBeDemanded != recs[j].QuantityToBeDemanded {
			return recs[i].QuantityToBeDemanded > recs[j].QuantityToBeDemanded
		}
		return recs[i].Index < recs[j].Index
	})
	return plan
}
