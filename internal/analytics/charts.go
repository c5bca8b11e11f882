package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stocklens/internal/demand"
	"github.com/andresuchdata/stocklens/internal/domain"
)

// ChartSize is the number of brands in each chart series.
const ChartSize = 10

// Charts builds the dashboard series for records. Every series breaks ties
// on the lower index.
func Charts(records []domain.BrandRecord) domain.Charts {
	return domain.Charts{
		VolumeLeaders:   volumeLeaders(records),
		VelocityLeaders: velocityLeaders(records),
		RevenueLeaders:  revenueLeaders(records),
		RevenueShare:    revenueShare(records),
	}
}

// volumeLeaders orders brands with stock on hand by quantity descending.
func volumeLeaders(records []domain.BrandRecord) []domain.VolumeLeader {
	stocked := make([]domain.BrandRecord, 0, len(records))
	for _, rec := range records {
		if rec.QuantityCurrentStock > 0 {
			stocked = append(stocked, rec)
		}
	}
	sort.SliceStable(stocked, func(i, j int) bool {
		if stocked[i].QuantityCurrentStock != stocked[j].QuantityCurrentStock {
			return stocked[i].QuantityCurrentStock > stocked[j].QuantityCurrentStock
		}
		return stocked[i].Index < stocked[j].Index
	})

	out := make([]domain.VolumeLeader, 0, ChartSize)
	for _, rec := range head(stocked) {
		out = append(out, domain.VolumeLeader{
			Index:           rec.Index,
			Name:            rec.Name,
			Quantity:        rec.QuantityCurrentStock,
			StockValueToday: rec.StockValueToday,
		})
	}
	return out
}

// velocityLeaders orders brands by days of stock ascending. Brands whose
// days of stock is zero or unbounded have no meaningful velocity and are
// left out.
func velocityLeaders(records []domain.BrandRecord) []domain.VelocityLeader {
	calc := demand.NewCalculator()
	out := make([]domain.VelocityLeader, 0, len(records))
	for _, rec := range records {
		m := calc.Calculate(rec)
		days, ok := m.DaysOfStock.Value()
		if !m.Known() || !ok || days <= 0 {
			continue
		}
		out = append(out, domain.VelocityLeader{
			Index:            rec.Index,
			Name:             rec.Name,
			Velocity:         round2(demand.DaysPerMonth / days),
			DaysOfStock:      days,
			MonthlySaleValue: rec.MonthlySaleValue,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysOfStock != out[j].DaysOfStock {
			return out[i].DaysOfStock < out[j].DaysOfStock
		}
		return out[i].Index < out[j].Index
	})
	if len(out) > ChartSize {
		out = out[:ChartSize]
	}
	return out
}

func revenueLeaders(records []domain.BrandRecord) []domain.RevenueLeader {
	ranked := Rank(records)
	if len(ranked) > ChartSize {
		ranked = ranked[:ChartSize]
	}
	out := make([]domain.RevenueLeader, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, domain.RevenueLeader{
			Index:            r.Index,
			Name:             r.Name,
			MonthlySaleValue: r.MonthlySaleValue,
			StockValueToday:  r.StockValueToday,
			StockRatio:       r.StockRatio,
		})
	}
	return out
}

// revenueShare expresses each selling revenue leader as a percentage of the
// monthly sales of every brand.
func revenueShare(records []domain.BrandRecord) []domain.RevenueShare {
	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(decimal.NewFromFloat(rec.MonthlySaleValue))
	}

	ranked := Rank(records)
	if len(ranked) > ChartSize {
		ranked = ranked[:ChartSize]
	}
	out := make([]domain.RevenueShare, 0, len(ranked))
	for _, r := range ranked {
		if r.MonthlySaleValue <= 0 || !total.IsPositive() {
			continue
		}
		pct := decimal.NewFromFloat(r.MonthlySaleValue).Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		out = append(out, domain.RevenueShare{
			Index:            r.Index,
			Name:             r.Name,
			MonthlySaleValue: r.MonthlySaleValue,
			Percentage:       pct.InexactFloat64(),
			StockValueToday:  r.StockValueToday,
		})
	}
	return out
}

func head(records []domain.BrandRecord) []domain.BrandRecord {
	if len(records) > ChartSize {
		return records[:ChartSize]
	}
	return records
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
