// Package grid turns uploaded spreadsheet bytes into a typed cell matrix.
package grid

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stocklens/internal/domain"
)

// DefaultMaxRows bounds the number of rows read from a single upload.
const DefaultMaxRows = 10000

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// Options control how a source is read.
type Options struct {
	// MaxRows is the row cap; zero means DefaultMaxRows.
	MaxRows int
	// DefaultYear is applied to dates written without a year; zero means
	// the current year.
	DefaultYear int
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
}

func (o Options) maxRows() int {
	if o.MaxRows <= 0 {
		return DefaultMaxRows
	}
	return o.MaxRows
}

// Read detects the source format from its leading bytes and returns the
// cells of the first (or selected) sheet. name is used only for messages.
func Read(r io.Reader, name string, opts Options) (domain.Grid, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(oleMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		if _, err := br.Peek(1); errors.Is(err, io.EOF) {
			return nil, domain.NewError(domain.KindMalformedInput, "%s is empty", name)
		}
	}

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return readWorkbook(br, name, opts)
	case bytes.HasPrefix(head, oleMagic):
		return nil, domain.NewError(domain.KindMalformedInput,
			"%s is a legacy binary .xls workbook; re-save it as .xlsx or .csv", name)
	default:
		return readDelimited(br, name, opts)
	}
}

func readWorkbook(r io.Reader, name string, opts Options) (domain.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.NewError(domain.KindMalformedInput, "failed to open workbook %s: %v", name, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, domain.NewError(domain.KindMalformedInput, "workbook %s has no sheets", name)
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, domain.NewError(domain.KindMalformedInput, "failed to read sheet %s of %s: %v", sheet, name, err)
	}
	defer rows.Close()

	limit := opts.maxRows()
	var g domain.Grid
	for rows.Next() {
		if len(g) >= limit {
			return nil, sizeLimit(name, limit)
		}
		record, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, domain.NewError(domain.KindMalformedInput, "failed to read row %d of %s: %v", len(g)+1, name, err)
		}
		g = append(g, parseRow(record, opts.DefaultYear))
	}
	if err := rows.Error(); err != nil {
		return nil, domain.NewError(domain.KindMalformedInput, "error iterating rows in %s: %v", name, err)
	}
	restoreDates(f, sheet, g, opts.DefaultYear)

	log.Debug().Str("source", name).Str("sheet", sheet).Int("rows", len(g)).Msg("workbook read")
	return g, nil
}

// restoreDates re-reads numeric cells through their display format. Raw
// values keep full precision, but date-formatted cells are stored as serial
// numbers and only read as dates once formatted.
func restoreDates(f *excelize.File, sheet string, g domain.Grid, defaultYear int) {
	for r, row := range g {
		for c, cell := range row {
			if !cell.IsNumber() {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			shown, err := f.GetCellValue(sheet, ref)
			if err != nil || shown == cell.Raw {
				continue
			}
			if d := domain.ParseCell(shown, defaultYear); d.Kind == domain.CellDate {
				row[c] = d
			}
		}
	}
}

func readDelimited(r *bufio.Reader, name string, opts Options) (domain.Grid, error) {
	if bom, _ := r.Peek(len(utf8BOM)); bytes.Equal(bom, utf8BOM) {
		_, _ = r.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.Comma = sniffDelimiter(r)

	limit := opts.maxRows()
	var g domain.Grid
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewError(domain.KindMalformedInput, "failed to parse %s: %v", name, err)
		}
		if len(g) >= limit {
			return nil, sizeLimit(name, limit)
		}
		g = append(g, parseRow(record, opts.DefaultYear))
	}

	log.Debug().Str("source", name).Int("rows", len(g)).Msg("delimited file read")
	return g, nil
}

// sniffDelimiter picks ';' or tab over ',' when the first line clearly uses it.
func sniffDelimiter(r *bufio.Reader) rune {
	line, _ := r.Peek(4096)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	first := string(line)
	best, bestCount := ',', strings.Count(first, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(first, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func parseRow(record []string, defaultYear int) []domain.Cell {
	row := make([]domain.Cell, len(record))
	for i, raw := range record {
		row[i] = domain.ParseCell(raw, defaultYear)
	}
	return row
}

func sizeLimit(name string, limit int) error {
	return domain.NewError(domain.KindSizeLimitExceeded, "%s has more than %d rows", name, limit)
}
