package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stocklens/internal/domain"
)

var digitRun = regexp.MustCompile(`\d+`)

// rowError is a validation failure that rejects a single brand.
type rowError struct {
	rule   string
	detail string
}

func (e *rowError) Error() string { return e.detail }

func parseColumnLayout(g domain.Grid, h domain.HeaderMap) ([]domain.BrandRecord, []domain.Rejection) {
	nameCol, _ := h.Column(domain.FieldName)

	var (
		records    []domain.BrandRecord
		rejections []domain.Rejection
		seen       = map[int64]bool{}
		pending    []int
	)

	for r := h.Row + 1; r < len(g); r++ {
		row := g[r]
		if domain.RowIsBlank(row) {
			continue
		}

		name := cellAt(row, nameCol).AsText()
		if isSummaryLabel(name) {
			log.Debug().Int("row", r+1).Str("label", name).Msg("skipping summary row")
			continue
		}

		rec, hasIndex, rerr := columnRecord(row, h, name)
		if rerr == nil && hasIndex && seen[rec.Index] {
			rerr = &rowError{rule: domain.RuleDuplicateIndex, detail: fmt.Sprintf("index %d already used by an earlier row", rec.Index)}
		}
		if rerr != nil {
			rejections = append(rejections, domain.Rejection{Row: r + 1, Brand: name, Rule: rerr.rule, Detail: rerr.detail})
			continue
		}

		if hasIndex {
			seen[rec.Index] = true
		} else {
			pending = append(pending, len(records))
		}
		records = append(records, rec)
	}

	assignSyntheticIndices(records, pending, seen)
	return records, rejections
}

func columnRecord(row []domain.Cell, h domain.HeaderMap, name string) (domain.BrandRecord, bool, *rowError) {
	rec := domain.BrandRecord{Name: name}
	if name == "" {
		return rec, false, &rowError{rule: domain.RuleBlankName, detail: "brand name is blank"}
	}

	index, hasIndex, rerr := indexFrom(row, h)
	if rerr != nil {
		return rec, false, rerr
	}
	rec.Index = index

	field := func(f domain.Field) (float64, bool, *rowError) {
		col, ok := h.Column(f)
		if !ok {
			return 0, false, nil
		}
		c := cellAt(row, col)
		if c.IsBlank() {
			return 0, false, nil
		}
		v, rerr := nonNegative(c, string(f))
		return v, true, rerr
	}

	rate, hasRate, rerr := field(domain.FieldRate)
	if rerr != nil {
		return rec, false, rerr
	}
	wholesale, hasWholesale, rerr := field(domain.FieldWholesaleRate)
	if rerr != nil {
		return rec, false, rerr
	}
	switch {
	case hasRate && hasWholesale:
		rec.Rate, rec.WholesaleRate = rate, wholesale
	case hasWholesale:
		rec.Rate, rec.WholesaleRate = wholesale, wholesale
	default:
		rec.Rate, rec.WholesaleRate = rate, rate
	}

	qty, _, rerr := field(domain.FieldQuantity)
	if rerr != nil {
		return rec, false, rerr
	}
	rec.QuantityCurrentStock = qty

	for _, dc := range h.Dates {
		c := cellAt(row, dc.Column)
		if c.IsBlank() {
			continue
		}
		v, rerr := nonNegative(c, "sales on "+dc.Date.Format(domain.DateKeyLayout))
		if rerr != nil {
			return rec, false, rerr
		}
		rec.DailySales.Set(dc.Date, v)
	}

	monthly, hasMonthly, rerr := field(domain.FieldMonthlySaleValue)
	if rerr != nil {
		return rec, false, rerr
	}
	if hasMonthly {
		rec.MonthlySaleValue = monthly
	} else {
		rec.MonthlySaleValue = rec.DailySales.Total() * rec.Rate
	}

	stockValue, hasStockValue, rerr := field(domain.FieldStockValueToday)
	if rerr != nil {
		return rec, false, rerr
	}
	if hasStockValue {
		rec.StockValueToday = stockValue
	} else {
		rec.StockValueToday = rec.Rate * rec.QuantityCurrentStock
	}

	return rec, hasIndex, nil
}

// indexFrom reads the source index. Text such as "ID_101" yields its first
// digit run.
func indexFrom(row []domain.Cell, h domain.HeaderMap) (int64, bool, *rowError) {
	col, ok := h.Column(domain.FieldIndex)
	if !ok {
		return 0, false, nil
	}
	c := cellAt(row, col)
	switch c.Kind {
	case domain.CellBlank:
		return 0, false, nil
	case domain.CellNumber:
		return integerIndex(c.Number)
	case domain.CellText:
		m := digitRun.FindString(c.Text)
		if m == "" {
			return 0, false, &rowError{rule: domain.RuleInvalidIndex, detail: fmt.Sprintf("index %q has no digits", c.Text)}
		}
		v, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return 0, false, &rowError{rule: domain.RuleInvalidIndex, detail: fmt.Sprintf("index %q is out of range", c.Text)}
		}
		return v, true, nil
	default:
		return 0, false, &rowError{rule: domain.RuleInvalidIndex, detail: fmt.Sprintf("index %q is not a number", c.String())}
	}
}

func integerIndex(v float64) (int64, bool, *rowError) {
	if v < 0 || v != math.Trunc(v) || v > math.MaxInt64/2 {
		return 0, false, &rowError{rule: domain.RuleInvalidIndex, detail: fmt.Sprintf("index %v is not a non-negative integer", v)}
	}
	return int64(v), true, nil
}

func nonNegative(c domain.Cell, what string) (float64, *rowError) {
	v, err := c.AsNumber()
	if err != nil {
		return 0, &rowError{rule: domain.RuleNotNumeric, detail: fmt.Sprintf("%s: %v", what, err)}
	}
	if v < 0 {
		return 0, &rowError{rule: domain.RuleNegativeValue, detail: fmt.Sprintf("%s is negative (%v)", what, v)}
	}
	return v, nil
}

// assignSyntheticIndices numbers index-less records after the largest
// source index, in row order.
func assignSyntheticIndices(records []domain.BrandRecord, pending []int, seen map[int64]bool) {
	if len(pending) == 0 {
		return
	}
	var next int64 = 1
	for idx := range seen {
		if idx >= next {
			next = idx + 1
		}
	}
	for _, i := range pending {
		records[i].Index = next
		records[i].SyntheticIndex = true
		seen[next] = true
		next++
	}
}
