package domain

import "time"

// LayoutKind names the recognised input layouts.
type LayoutKind string

const (
	LayoutUnknown    LayoutKind = "unknown"
	LayoutColumn     LayoutKind = "column"
	LayoutSimpleList LayoutKind = "simple_list"
)

// Field is a BrandRecord attribute a header column can map to.
type Field string

const (
	FieldName             Field = "name"
	FieldIndex            Field = "index"
	FieldRate             Field = "rate"
	FieldWholesaleRate    Field = "wholesale_rate"
	FieldQuantity         Field = "quantity_current_stock"
	FieldMonthlySaleValue Field = "monthly_sale_value"
	FieldStockValueToday  Field = "stock_value_today"
)

// DateColumn is a header column whose label parsed as a calendar date.
type DateColumn struct {
	Column int
	Date   time.Time
}

// HeaderMap locates each recognised field in a column-layout grid.
type HeaderMap struct {
	Row    int
	Fields map[Field]int
	Dates  []DateColumn
}

// Column returns the column index mapped to f.
func (h HeaderMap) Column(f Field) (int, bool) {
	col, ok := h.Fields[f]
	return col, ok
}

// Layout is the classification of a grid: Column(header) or SimpleList.
type Layout struct {
	Kind   LayoutKind
	Header *HeaderMap
}

func ColumnLayout(h HeaderMap) Layout { return Layout{Kind: LayoutColumn, Header: &h} }
func SimpleListLayout() Layout { return Layout{Kind: LayoutSimpleList} }
func UnknownLayout() Layout { return Layout{Kind: LayoutUnknown} }
