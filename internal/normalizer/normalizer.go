// Package normalizer reconciles the column and simple-list spreadsheet
// layouts into validated BrandRecords.
package normalizer

import (
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stocklens/internal/domain"
)

// Options bound a normalization run.
type Options struct {
	// MaxBrands rejects datasets with more accepted brands; zero disables the cap.
	MaxBrands int
}

// Result holds the accepted records and the brands that were rejected.
type Result struct {
	Layout     domain.Layout
	Records    []domain.BrandRecord
	Rejections []domain.Rejection
}

// Normalize detects the layout of g and converts it to BrandRecords. Rows
// that fail validation are reported in Result.Rejections; when no brand
// survives the call fails with EmptyDataset carrying those rejections.
func Normalize(g domain.Grid, opts Options) (*Result, error) {
	layout := Detect(g)
	log.Debug().Str("layout", string(layout.Kind)).Int("rows", len(g)).Msg("layout detected")

	var (
		records    []domain.BrandRecord
		rejections []domain.Rejection
	)

	switch layout.Kind {
	case domain.LayoutColumn:
		records, rejections = parseColumnLayout(g, *layout.Header)
	case domain.LayoutSimpleList:
		var err error
		records, rejections, err = parseSimpleList(g, firstNonBlankRow(g, 0))
		if err != nil {
			return nil, err
		}
	default:
		if firstNonBlankRow(g, 0) < 0 {
			return nil, domain.NewError(domain.KindEmptyDataset, "the file contains no data")
		}
		return nil, domain.NewError(domain.KindMalformedInput,
			"no 'Brand Name' header row and no simple list of names followed by index, rate and quantity values")
	}

	for _, rej := range rejections {
		log.Warn().Int("row", rej.Row).Str("brand", rej.Brand).Str("rule", rej.Rule).Msg(rej.Detail)
	}

	if len(records) == 0 {
		return nil, domain.NewError(domain.KindEmptyDataset, "no valid brands found").WithRejections(rejections)
	}
	if opts.MaxBrands > 0 && len(records) > opts.MaxBrands {
		return nil, domain.NewError(domain.KindSizeLimitExceeded,
			"%d brands exceed the limit of %d", len(records), opts.MaxBrands)
	}

	return &Result{Layout: layout, Records: records, Rejections: rejections}, nil
}
