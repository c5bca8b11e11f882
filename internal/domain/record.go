package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DailySale is one day's sold quantity for a brand.
type DailySale struct {
	Date     time.Time `json:"-"`
	Quantity float64   `json:"quantity"`
}

type dailySaleJSON struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

func (d DailySale) MarshalJSON() ([]byte, error) {
	return json.Marshal(dailySaleJSON{Date: d.Date.Format(DateKeyLayout), Quantity: d.Quantity})
}

func (d *DailySale) UnmarshalJSON(data []byte) error {
	var raw dailySaleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := time.Parse(DateKeyLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("daily sale date %q: %w", raw.Date, err)
	}
	d.Date = t
	d.Quantity = raw.Quantity
	return nil
}

// DailySales is an insertion-ordered date → quantity mapping. Order follows
// the source columns.
type DailySales []DailySale

// Set stores qty for date, replacing an existing entry in place.
func (s *DailySales) Set(date time.Time, qty float64) {
	date = CalendarDate(date)
	for i := range *s {
		if (*s)[i].Date.Equal(date) {
			(*s)[i].Quantity = qty
			return
		}
	}
	*s = append(*s, DailySale{Date: date, Quantity: qty})
}

func (s DailySales) Get(date time.Time) (float64, bool) {
	date = CalendarDate(date)
	for _, d := range s {
		if d.Date.Equal(date) {
			return d.Quantity, true
		}
	}
	return 0, false
}

func (s DailySales) Total() float64 {
	var total float64
	for _, d := range s {
		total += d.Quantity
	}
	return total
}

// BrandRecord is the canonical unit of analysis produced by the normalizer.
type BrandRecord struct {
	Index                int64      `json:"index"`
	Name                 string     `json:"name"`
	Rate                 float64    `json:"rate"`
	WholesaleRate        float64    `json:"wholesale_rate"`
	QuantityCurrentStock float64    `json:"quantity_current_stock"`
	DailySales           DailySales `json:"daily_sales"`
	MonthlySaleValue     float64    `json:"monthly_sale_value"`
	StockValueToday      float64    `json:"stock_value_today"`
	// SyntheticIndex is set when the source carried no index for this brand.
	SyntheticIndex bool `json:"synthetic_index,omitempty"`
}

// Validate checks the per-record invariants. It returns the violated rule
// name and a detail message, or "" when the record is valid.
func (r BrandRecord) Validate() (rule, detail string) {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return RuleBlankName, "brand name is blank"
	case r.Rate < 0:
		return RuleNegativeValue, fmt.Sprintf("rate %v is negative", r.Rate)
	case r.WholesaleRate < 0:
		return RuleNegativeValue, fmt.Sprintf("wholesale rate %v is negative", r.WholesaleRate)
	case r.QuantityCurrentStock < 0:
		return RuleNegativeValue, fmt.Sprintf("stock quantity %v is negative", r.QuantityCurrentStock)
	case r.MonthlySaleValue < 0:
		return RuleNegativeValue, fmt.Sprintf("monthly sale value %v is negative", r.MonthlySaleValue)
	case r.StockValueToday < 0:
		return RuleNegativeValue, fmt.Sprintf("stock value %v is negative", r.StockValueToday)
	}
	for _, d := range r.DailySales {
		if d.Quantity < 0 {
			return RuleNegativeValue, fmt.Sprintf("sales on %s are negative", d.Date.Format(DateKeyLayout))
		}
	}
	return "", ""
}

// Snapshot is the single current dataset. Uploads replace it wholesale.
type Snapshot struct {
	ID         string        `json:"id" db:"id"`
	Version    int64         `json:"version" db:"version"`
	SourceName string        `json:"source_name" db:"source_name"`
	Layout     string        `json:"layout" db:"layout"`
	UploadedAt time.Time     `json:"uploaded_at" db:"uploaded_at"`
	Records    []BrandRecord `json:"records" db:"-"`
	Rejections []Rejection   `json:"rejections,omitempty" db:"-"`
}

// SnapshotMeta describes where a replacement dataset came from.
type SnapshotMeta struct {
	SourceName string
	Layout     LayoutKind
	Rejections []Rejection
}

// CloneRecords deep-copies records so stored snapshots never alias caller slices.
func CloneRecords(records []BrandRecord) []BrandRecord {
	out := make([]BrandRecord, len(records))
	for i, rec := range records {
		out[i] = rec
		if rec.DailySales != nil {
			out[i].DailySales = append(DailySales(nil), rec.DailySales...)
		}
	}
	return out
}
