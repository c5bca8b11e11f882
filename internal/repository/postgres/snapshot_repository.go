package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/stocklens/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS dataset_snapshots (
	id          UUID PRIMARY KEY,
	version     BIGINT NOT NULL,
	source_name TEXT NOT NULL DEFAULT '',
	layout      TEXT NOT NULL DEFAULT '',
	uploaded_at TIMESTAMPTZ NOT NULL,
	rejections  JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS brand_records (
	snapshot_id            UUID NOT NULL REFERENCES dataset_snapshots(id) ON DELETE CASCADE,
	position               INT NOT NULL,
	idx                    BIGINT NOT NULL,
	name                   TEXT NOT NULL,
	rate                   DOUBLE PRECISION NOT NULL,
	wholesale_rate         DOUBLE PRECISION NOT NULL,
	quantity_current_stock DOUBLE PRECISION NOT NULL,
	monthly_sale_value     DOUBLE PRECISION NOT NULL,
	stock_value_today      DOUBLE PRECISION NOT NULL,
	daily_sales            JSONB NOT NULL DEFAULT '[]',
	synthetic_index        BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (snapshot_id, position),
	UNIQUE (snapshot_id, idx)
);
`

// SnapshotRepository stores the current dataset in Postgres. Only the
// latest snapshot is kept.
type SnapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// EnsureSchema creates the snapshot tables when missing.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

type brandRow struct {
	Position             int     `db:"position"`
	Index                int64   `db:"idx"`
	Name                 string  `db:"name"`
	Rate                 float64 `db:"rate"`
	WholesaleRate        float64 `db:"wholesale_rate"`
	QuantityCurrentStock float64 `db:"quantity_current_stock"`
	MonthlySaleValue     float64 `db:"monthly_sale_value"`
	StockValueToday      float64 `db:"stock_value_today"`
	DailySales           []byte  `db:"daily_sales"`
	SyntheticIndex       bool    `db:"synthetic_index"`
}

type snapshotRow struct {
	ID         string    `db:"id"`
	Version    int64     `db:"version"`
	SourceName string    `db:"source_name"`
	Layout     string    `db:"layout"`
	UploadedAt time.Time `db:"uploaded_at"`
	Rejections []byte    `db:"rejections"`
}

func (r *SnapshotRepository) Replace(ctx context.Context, records []domain.BrandRecord, meta domain.SnapshotMeta) (domain.Snapshot, error) {
	snap := domain.Snapshot{
		ID:         uuid.NewString(),
		SourceName: meta.SourceName,
		Layout:     string(meta.Layout),
		UploadedAt: time.Now().UTC(),
		Records:    domain.CloneRecords(records),
		Rejections: meta.Rejections,
	}

	rejections, err := json.Marshal(nonNilRejections(meta.Rejections))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to marshal rejections: %w", err)
	}

	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. Serialize writers; last commit wins
		if _, err := tx.ExecContext(ctx, `LOCK TABLE dataset_snapshots IN EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("failed to lock snapshots: %w", err)
		}

		// 2. Next version
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM dataset_snapshots`).Scan(&snap.Version); err != nil {
			return fmt.Errorf("failed to read snapshot version: %w", err)
		}

		// 3. Drop the previous snapshot; records cascade
		if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_snapshots`); err != nil {
			return fmt.Errorf("failed to delete previous snapshot: %w", err)
		}

		// 4. Insert the new snapshot and its records
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dataset_snapshots (id, version, source_name, layout, uploaded_at, rejections)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			snap.ID, snap.Version, snap.SourceName, snap.Layout, snap.UploadedAt, rejections,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO brand_records (
				snapshot_id, position, idx, name, rate, wholesale_rate,
				quantity_current_stock, monthly_sale_value, stock_value_today,
				daily_sales, synthetic_index
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, rec := range snap.Records {
			sales, err := json.Marshal(nonNilSales(rec.DailySales))
			if err != nil {
				return fmt.Errorf("failed to marshal daily sales for %s: %w", rec.Name, err)
			}
			_, err = stmt.ExecContext(ctx,
				snap.ID, i, rec.Index, rec.Name, rec.Rate, rec.WholesaleRate,
				rec.QuantityCurrentStock, rec.MonthlySaleValue, rec.StockValueToday,
				sales, rec.SyntheticIndex,
			)
			if err != nil {
				return fmt.Errorf("failed to insert brand %s: %w", rec.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// Current reads the snapshot header and its records in one read-only
// transaction, so a concurrent Replace can never pair a header with the
// records of another snapshot.
func (r *SnapshotRepository) Current(ctx context.Context) (domain.Snapshot, error) {
	var (
		head snapshotRow
		rows []brandRow
	)
	err := r.db.ReadTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &head, `
			SELECT id, version, source_name, layout, uploaded_at, rejections
			FROM dataset_snapshots
			ORDER BY version DESC
			LIMIT 1`)
		if errors.Is(err, sql.ErrNoRows) {
			return errNoSnapshot
		}
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}

		err = tx.SelectContext(ctx, &rows, `
			SELECT position, idx, name, rate, wholesale_rate, quantity_current_stock,
				monthly_sale_value, stock_value_today, daily_sales, synthetic_index
			FROM brand_records
			WHERE snapshot_id = $1
			ORDER BY position`, head.ID)
		if err != nil {
			return fmt.Errorf("failed to load brand records: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return buildSnapshot(head, rows)
}

var errNoSnapshot = domain.NewError(domain.KindNoDataset, "no dataset has been uploaded yet")

// buildSnapshot decodes stored rows. A header without records is treated
// as no dataset, since an accepted upload always has at least one brand.
func buildSnapshot(head snapshotRow, rows []brandRow) (domain.Snapshot, error) {
	if len(rows) == 0 {
		return domain.Snapshot{}, errNoSnapshot
	}

	snap := domain.Snapshot{
		ID:         head.ID,
		Version:    head.Version,
		SourceName: head.SourceName,
		Layout:     head.Layout,
		UploadedAt: head.UploadedAt,
	}
	if len(head.Rejections) > 0 {
		if err := json.Unmarshal(head.Rejections, &snap.Rejections); err != nil {
			return domain.Snapshot{}, fmt.Errorf("failed to decode rejections: %w", err)
		}
	}

	snap.Records = make([]domain.BrandRecord, 0, len(rows))
	for _, br := range rows {
		rec := domain.BrandRecord{
			Index:                br.Index,
			Name:                 br.Name,
			Rate:                 br.Rate,
			WholesaleRate:        br.WholesaleRate,
			QuantityCurrentStock: br.QuantityCurrentStock,
			MonthlySaleValue:     br.MonthlySaleValue,
			StockValueToday:      br.StockValueToday,
			SyntheticIndex:       br.SyntheticIndex,
		}
		if err := json.Unmarshal(br.DailySales, &rec.DailySales); err != nil {
			return domain.Snapshot{}, fmt.Errorf("failed to decode daily sales for %s: %w", br.Name, err)
		}
		snap.Records = append(snap.Records, rec)
	}
	return snap, nil
}

func (r *SnapshotRepository) Close() error {
	return r.db.Close()
}

func nonNilRejections(r []domain.Rejection) []domain.Rejection {
	if r == nil {
		return []domain.Rejection{}
	}
	return r
}

func nonNilSales(s domain.DailySales) domain.DailySales {
	if s == nil {
		return domain.DailySales{}
	}
	return s
}
