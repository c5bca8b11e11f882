package normalizer

import (
	"fmt"

	"github.com/andresuchdata/stocklens/internal/domain"
)

const valuesPerBrand = 3

type listedName struct {
	name string
	row  int
}

type listedNumber struct {
	value float64
	row   int
}

// parseSimpleList reads a leading run of name rows followed by a run of
// numeric rows, consuming (index, rate, quantity) per brand in name order.
// Merged cells are not supported.
func parseSimpleList(g domain.Grid, start int) ([]domain.BrandRecord, []domain.Rejection, error) {
	var (
		names   []listedName
		numbers []listedNumber
		inNames = true
	)

	for r := start; r < len(g); r++ {
		cells := domain.NonBlank(g[r])
		if len(cells) == 0 {
			continue
		}
		numeric := 0
		for _, c := range cells {
			if c.IsNumber() {
				numeric++
			}
		}

		switch {
		case numeric == len(cells):
			inNames = false
			for _, c := range cells {
				numbers = append(numbers, listedNumber{value: c.Number, row: r + 1})
			}
		case numeric == 0 && inNames:
			for _, c := range cells {
				names = append(names, listedName{name: c.AsText(), row: r + 1})
			}
		case numeric == 0:
			return nil, nil, domain.NewError(domain.KindMalformedInput,
				"row %d: text %q found after the numeric section began", r+1, cells[0].AsText())
		default:
			return nil, nil, domain.NewError(domain.KindMalformedInput,
				"row %d mixes brand names and numbers", r+1)
		}
	}

	if len(names) == 0 {
		return nil, nil, domain.NewError(domain.KindMalformedInput, "no brand names found")
	}

	var (
		records    []domain.BrandRecord
		rejections []domain.Rejection
		seen       = map[int64]bool{}
		pos        int
	)

	for _, n := range names {
		if remaining := len(numbers) - pos; remaining < valuesPerBrand {
			return nil, nil, domain.NewError(domain.KindInsufficientData,
				"brand %q has %d of %d numeric values (index, rate, quantity)", n.name, remaining, valuesPerBrand)
		}
		triplet := numbers[pos : pos+valuesPerBrand]
		pos += valuesPerBrand

		rec, rerr := listRecord(n.name, triplet)
		if rerr == nil && seen[rec.Index] {
			rerr = &rowError{rule: domain.RuleDuplicateIndex, detail: fmt.Sprintf("index %d already used by an earlier brand", rec.Index)}
		}
		if rerr != nil {
			rejections = append(rejections, domain.Rejection{Row: n.row, Brand: n.name, Rule: rerr.rule, Detail: rerr.detail})
			continue
		}
		seen[rec.Index] = true
		records = append(records, rec)
	}

	if left := len(numbers) - pos; left > 0 {
		return nil, nil, domain.NewError(domain.KindMalformedInput,
			"%d numeric values left over after the last brand (row %d)", left, numbers[pos].row)
	}

	return records, rejections, nil
}

func listRecord(name string, triplet []listedNumber) (domain.BrandRecord, *rowError) {
	rec := domain.BrandRecord{Name: name}
	if name == "" {
		return rec, &rowError{rule: domain.RuleBlankName, detail: "brand name is blank"}
	}

	index, _, rerr := integerIndex(triplet[0].value)
	if rerr != nil {
		return rec, rerr
	}
	rate, rerr := nonNegative(domain.NumberCell(triplet[1].value), "rate")
	if rerr != nil {
		return rec, rerr
	}
	qty, rerr := nonNegative(domain.NumberCell(triplet[2].value), "quantity")
	if rerr != nil {
		return rec, rerr
	}

	rec.Index = index
	rec.Rate = rate
	rec.WholesaleRate = rate
	rec.QuantityCurrentStock = qty
	rec.StockValueToday = rate * qty
	return rec, nil
}
