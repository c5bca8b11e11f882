package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CellKind tags the variant held by a Cell.
type CellKind int

const (
	CellBlank CellKind = iota
	CellNumber
	CellText
	CellDate
)

func (k CellKind) String() string {
	switch k {
	case CellBlank:
		return "blank"
	case CellNumber:
		return "number"
	case CellText:
		return "text"
	case CellDate:
		return "date"
	default:
		return "unknown"
	}
}

// Cell is a single loosely typed spreadsheet value. Exactly one of Number,
// Text or Date is meaningful, selected by Kind. Raw keeps the trimmed source
// text when the cell was parsed from one.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
	Date   time.Time
	Raw    string
}

// Grid is the 2-D cell matrix produced by the grid reader. Rows may be ragged.
type Grid [][]Cell

func BlankCell() Cell { return Cell{Kind: CellBlank} }
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Number: v} }
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }
func DateCell(t time.Time) Cell { return Cell{Kind: CellDate, Date: CalendarDate(t)} }
func (c Cell) IsBlank() bool { return c.Kind == CellBlank }
func (c Cell) IsNumber() bool { return c.Kind == CellNumber }
func (c Cell) AsDate() (time.Time, bool) { return c.Date, c.Kind == CellDate }

// ConversionError reports a cell that could not be read as the requested type.
type ConversionError struct {
	Want CellKind
	Got  Cell
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("expected %s, got %s %q", e.Want, e.Got.Kind, e.Got.String())
}

// AsNumber returns the numeric value of the cell. Blank cells read as zero;
// text and dates are a conversion failure.
func (c Cell) AsNumber() (float64, error) {
	switch c.Kind {
	case CellNumber:
		return c.Number, nil
	case CellBlank:
		return 0, nil
	default:
		return 0, &ConversionError{Want: CellNumber, Got: c}
	}
}

// AsText renders any cell as trimmed text, preferring the text the cell was
// parsed from so that names such as "March 1" survive unchanged.
func (c Cell) AsText() string {
	if c.Raw != "" {
		return c.Raw
	}
	return strings.TrimSpace(c.String())
}

func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellText:
		return c.Text
	case CellDate:
		return c.Date.Format(DateKeyLayout)
	default:
		return ""
	}
}

// RowIsBlank reports whether every cell of row is blank.
func RowIsBlank(row []Cell) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// NonBlank returns the non-blank cells of row in column order.
func NonBlank(row []Cell) []Cell {
	out := make([]Cell, 0, len(row))
	for _, c := range row {
		if !c.IsBlank() {
			out = append(out, c)
		}
	}
	return out
}

// DateKeyLayout is the canonical calendar-date format used for keys and JSON.
const DateKeyLayout = "2006-01-02"

// CalendarDate truncates t to midnight UTC of its calendar day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day-first layouts are tried before month-first ones.
var datedLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"02-Jan-06",
	"2-Jan-06",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 06",
	"2 Jan 06",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"01-02-06",
	"1/2/06",
	"01/02/2006",
	"1/2/06 15:04",
}

var yearlessLayouts = []string{
	"2 Jan",
	"02 Jan",
	"2-Jan",
	"02-Jan",
	"Jan 2",
	"Jan-2",
	"2 January",
	"January 2",
}

// ParseCell classifies raw spreadsheet text into a Cell. Numbers win over
// dates, so a bare "20250825" stays numeric. Dates written without a year
// take defaultYear.
func ParseCell(raw string, defaultYear int) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return BlankCell()
	}
	var c Cell
	if v, ok := ParseNumber(s); ok {
		c = NumberCell(v)
	} else if t, ok := ParseDate(s, defaultYear); ok {
		c = DateCell(t)
	} else {
		c = TextCell(s)
	}
	c.Raw = s
	return c
}

// ParseNumber parses plain or thousands-separated decimal text.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseDate recognises the calendar-date spellings found in inventory
// exports, e.g. "25-Aug-25", "2025-08-25", "25 Aug".
func ParseDate(s string, defaultYear int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CalendarDate(t), true
		}
	}
	if defaultYear <= 0 {
		defaultYear = time.Now().Year()
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(defaultYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
