// Package report renders demand recommendations as an xlsx workbook.
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stocklens/internal/domain"
)

const (
	SheetName          = "Demand Forecast"
	InventorySheetName = "Inventory"
	TotalLabel         = "TOTAL"
	ContentType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Columns is the fixed header of the demand sheet.
var Columns = []string{
	"Index",
	"Brand Name",
	"Wholesale Rate",
	"Projected Monthly Sale",
	"Quantity in Stock",
	"Quantity to be Demanded",
}

var inventoryColumns = []string{
	"Index",
	"Brand Name",
	"Rate",
	"Wholesale Rate",
	"Quantity in Stock",
	"Monthly Sale value",
	"Stock value Today",
}

// Filename is the suggested download name for a report generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("demand_forecast_%s.xlsx", t.Format("20060102"))
}

type styles struct {
	header int
	number int
	total  int
}

// Build writes recs, in the order given, to the demand sheet followed by a
// TOTAL row, and records to an inventory sheet. The Index column echoes
// each brand's source index. Output depends only on the arguments.
func Build(records []domain.BrandRecord, recs []domain.DemandRecommendation, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(InventorySheetName); err != nil {
		return nil, fmt.Errorf("failed to add inventory sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeDemandSheet(f, st, recs); err != nil {
		return nil, err
	}
	if err := writeInventorySheet(f, st, records); err != nil {
		return nil, err
	}

	stamp := generatedAt.UTC().Format(time.RFC3339)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    SheetName,
		Creator:  "stocklens",
		Created:  stamp,
		Modified: stamp,
	}); err != nil {
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("failed to create header style: %w", err)
	}
	st.number, err = f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return st, fmt.Errorf("failed to create number style: %w", err)
	}
	st.total, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
		NumFmt: 4,
		Border: []excelize.Border{{Type: "top", Color: "366092", Style: 2}},
	})
	if err != nil {
		return st, fmt.Errorf("failed to create total style: %w", err)
	}
	return st, nil
}

func writeDemandSheet(f *excelize.File, st styles, recs []domain.DemandRecommendation) error {
	if err := writeHeader(f, SheetName, Columns, st.header); err != nil {
		return err
	}

	stockTotal, demandTotal := decimal.Zero, decimal.Zero
	for i, r := range recs {
		row := i + 2
		values := []interface{}{
			r.Index,
			r.BrandName,
			round2(r.WholesaleRate),
			round2(r.MonthlySalesQuantity),
			round2(r.QuantityCurrentStock),
			round2(r.QuantityToBeDemanded),
		}
		if err := writeRow(f, SheetName, row, values); err != nil {
			return err
		}
		stockTotal = stockTotal.Add(decimal.NewFromFloat(r.QuantityCurrentStock))
		demandTotal = demandTotal.Add(decimal.NewFromFloat(r.QuantityToBeDemanded))
	}

	lastData := len(recs) + 1
	if len(recs) > 0 {
		if err := f.SetCellStyle(SheetName, "C2", fmt.Sprintf("F%d", lastData), st.number); err != nil {
			return fmt.Errorf("failed to style demand rows: %w", err)
		}
	}

	totalRow := lastData + 1
	total := []interface{}{
		nil,
		TotalLabel,
		nil,
		nil,
		stockTotal.Round(2).InexactFloat64(),
		demandTotal.Round(2).InexactFloat64(),
	}
	if err := writeRow(f, SheetName, totalRow, total); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("F%d", totalRow), st.total); err != nil {
		return fmt.Errorf("failed to style total row: %w", err)
	}

	for i, width := range []float64{10, 40, 18, 24, 20, 26} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", col, err)
		}
	}
	return f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeInventorySheet(f *excelize.File, st styles, records []domain.BrandRecord) error {
	if err := writeHeader(f, InventorySheetName, inventoryColumns, st.header); err != nil {
		return err
	}
	for i, rec := range records {
		values := []interface{}{
			rec.Index,
			rec.Name,
			round2(rec.Rate),
			round2(rec.WholesaleRate),
			round2(rec.QuantityCurrentStock),
			round2(rec.MonthlySaleValue),
			round2(rec.StockValueToday),
		}
		if err := writeRow(f, InventorySheetName, i+2, values); err != nil {
			return err
		}
	}
	if len(records) > 0 {
		if err := f.SetCellStyle(InventorySheetName, "C2", fmt.Sprintf("G%d", len(records)+1), st.number); err != nil {
			return fmt.Errorf("failed to style inventory rows: %w", err)
		}
	}
	if err := f.SetColWidth(InventorySheetName, "A", "A", 10); err != nil {
		return err
	}
	if err := f.SetColWidth(InventorySheetName, "B", "B", 40); err != nil {
		return err
	}
	return f.SetColWidth(InventorySheetName, "C", "G", 20)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s: %w", h, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
