package normalizer

import (
	"strings"
	"unicode"

	"github.com/andresuchdata/stocklens/internal/domain"
)

var (
	nameLabels = map[string]bool{
		"brandname": true, "brand": true, "product": true, "productname": true,
		"name": true, "item": true, "itemname": true,
	}
	indexLabels = map[string]bool{
		"index": true, "id": true, "productid": true, "itemid": true, "sl": true,
		"slno": true, "sr": true, "srno": true, "sno": true, "no": true, "serialno": true,
	}
	summaryLabels = map[string]bool{
		"total": true, "grandtotal": true, "subtotal": true, "sum": true,
		"brandname": true, "brand": true, "name": true,
	}
)

// normalizeLabel lowercases s and drops everything but letters and digits,
// so "Brand  Name", "brand_name" and "BRAND-NAME" compare equal.
func normalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// classifyLabel maps a header label to the record field it carries.
// Order matters: value columns are checked before the rate and quantity
// columns whose names they overlap.
func classifyLabel(label string) (domain.Field, bool) {
	n := normalizeLabel(label)
	switch {
	case n == "":
		return "", false
	case strings.Contains(n, "demand") || strings.Contains(n, "projected"):
		return "", false
	case strings.Contains(n, "monthly") && strings.Contains(n, "sale"):
		return domain.FieldMonthlySaleValue, true
	case strings.Contains(n, "stockvalue"):
		return domain.FieldStockValueToday, true
	case strings.Contains(n, "days"):
		return "", false
	case strings.Contains(n, "wholesale"):
		return domain.FieldWholesaleRate, true
	case strings.Contains(n, "rate") || strings.Contains(n, "price") || n == "mrp":
		return domain.FieldRate, true
	case nameLabels[n] || (strings.Contains(n, "brand") && strings.Contains(n, "name")):
		return domain.FieldName, true
	case indexLabels[n] || strings.Contains(n, "index") || strings.Contains(n, "productid"):
		return domain.FieldIndex, true
	case strings.Contains(n, "qty") || strings.Contains(n, "quantity") || strings.Contains(n, "stock"):
		return domain.FieldQuantity, true
	}
	return "", false
}

func isSummaryLabel(name string) bool {
	return summaryLabels[normalizeLabel(name)]
}

// Detect classifies g once per upload. A first non-blank row that names a
// brand column and at least one other recognised column makes it a column
// layout; a first row of plain text followed by numbers makes it a simple
// list.
func Detect(g domain.Grid) domain.Layout {
	hr := firstNonBlankRow(g, 0)
	if hr < 0 {
		return domain.UnknownLayout()
	}
	if h, ok := headerMap(g[hr], hr); ok {
		return domain.ColumnLayout(h)
	}
	if looksLikeSimpleList(g, hr) {
		return domain.SimpleListLayout()
	}
	return domain.UnknownLayout()
}

func headerMap(row []domain.Cell, rowIdx int) (domain.HeaderMap, bool) {
	h := domain.HeaderMap{Row: rowIdx, Fields: map[domain.Field]int{}}
	for col, c := range row {
		if d, ok := c.AsDate(); ok {
			h.Dates = append(h.Dates, domain.DateColumn{Column: col, Date: d})
			continue
		}
		if c.Kind != domain.CellText {
			continue
		}
		f, ok := classifyLabel(c.Text)
		if !ok {
			continue
		}
		// first column wins when two labels map to the same field
		if _, taken := h.Fields[f]; !taken {
			h.Fields[f] = col
		}
	}

	if _, ok := h.Fields[domain.FieldName]; !ok {
		return domain.HeaderMap{}, false
	}
	if len(h.Fields) < 2 && len(h.Dates) == 0 {
		return domain.HeaderMap{}, false
	}
	return h, true
}

func looksLikeSimpleList(g domain.Grid, start int) bool {
	for _, c := range domain.NonBlank(g[start]) {
		if c.IsNumber() {
			return false
		}
	}
	for r := start + 1; r < len(g); r++ {
		for _, c := range g[r] {
			if c.IsNumber() {
				return true
			}
		}
	}
	return false
}

func firstNonBlankRow(g domain.Grid, from int) int {
	for r := from; r < len(g); r++ {
		if !domain.RowIsBlank(g[r]) {
			return r
		}
	}
	return -1
}

func cellAt(row []domain.Cell, col int) domain.Cell {
	if col < 0 || col >= len(row) {
		return domain.BlankCell()
	}
	return row[col]
}
