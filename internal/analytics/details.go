package analytics

import (
	"sort"

	"github.com/andresuchdata/stocklens/internal/demand"
	"github.com/andresuchdata/stocklens/internal/domain"
)

// Details returns the per-brand intermediate figures sorted by index so
// users can check each number by hand.
func Details(records []domain.BrandRecord) []domain.BrandDetail {
	calc := demand.NewCalculator()
	details := make([]domain.BrandDetail, 0, len(records))

	for _, rec := range records {
		d := domain.BrandDetail{
			Index:                rec.Index,
			BrandName:            rec.Name,
			Rate:                 rec.Rate,
			WholesaleRate:        rec.WholesaleRate,
			QuantityCurrentStock: rec.QuantityCurrentStock,
			MonthlySaleValue:     rec.MonthlySaleValue,
			StockValueToday:      rec.StockValueToday,
			StockRatio:           domain.Divide(rec.StockValueToday, rec.MonthlySaleValue),
			DaysAnalyzed:         len(rec.DailySales),
		}

		if m := calc.Calculate(rec); m.Known() {
			qty, avg, days := m.MonthlySalesQuantity, m.AvgDailySales, m.DaysOfStock
			d.MonthlySalesQuantity = &qty
			d.AvgDailySales = &avg
			d.DaysOfStock = &days
		}
		details = append(details, d)
	}

	sort.SliceStable(details, func(i, j int) bool { return details[i].Index < details[j].Index })
	return details
}
