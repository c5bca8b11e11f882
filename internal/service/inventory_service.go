package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stocklens/internal/analytics"
	"github.com/andresuchdata/stocklens/internal/config"
	"github.com/andresuchdata/stocklens/internal/dataset"
	"github.com/andresuchdata/stocklens/internal/demand"
	"github.com/andresuchdata/stocklens/internal/domain"
	"github.com/andresuchdata/stocklens/internal/drive"
	"github.com/andresuchdata/stocklens/internal/grid"
	"github.com/andresuchdata/stocklens/internal/normalizer"
	"github.com/andresuchdata/stocklens/internal/report"
	"github.com/andresuchdata/stocklens/internal/storage"
)

// AllowedExtensions lists the upload file types the grid reader accepts.
var AllowedExtensions = []string{".xlsx", ".xls", ".csv"}

// DriveSource is the subset of the Drive client the import channel uses.
type DriveSource interface {
	ListFiles(ctx context.Context, folderID string) ([]drive.File, error)
	Download(ctx context.Context, fileID string, maxBytes int64) (drive.File, []byte, error)
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// UploadResult summarises an accepted upload.
type UploadResult struct {
	SnapshotID string             `json:"snapshot_id"`
	Version    int64              `json:"version"`
	SourceName string             `json:"source_name"`
	Layout     string             `json:"layout"`
	UploadedAt time.Time          `json:"uploaded_at"`
	BrandCount int                `json:"brand_count"`
	Rejections []domain.Rejection `json:"rejections"`
	ArchiveKey string             `json:"archive_key,omitempty"`
}

// AnalyticsResult is the analytics view of the current snapshot.
type AnalyticsResult struct {
	SnapshotID string                    `json:"snapshot_id"`
	Summary    *domain.AnalyticsSummary  `json:"summary"`
	Overstock  []domain.OverstockFinding `json:"overstock_analysis"`
}

// ExportFile is a rendered report ready for download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	ArchiveKey  string
}

type InventoryService struct {
	store     dataset.Store
	archive   *storage.Archive
	drive     DriveSource
	analytics config.AnalyticsConfig
	ingest    config.IngestConfig
	folderID  string
	now       func() time.Time
}

// NewInventoryService wires the pipeline. archive and src may be nil; a nil
// archive skips archiving and a nil src disables the Drive import.
func NewInventoryService(store dataset.Store, archive *storage.Archive, src DriveSource, cfg *config.Config) *InventoryService {
	if archive == nil {
		archive = storage.NewArchive(nil, "")
	}
	return &InventoryService{
		store:     store,
		archive:   archive,
		drive:     src,
		analytics: cfg.Analytics,
		ingest:    cfg.Ingest,
		folderID:  cfg.Drive.FolderID,
		now:       time.Now,
	}
}

// Upload parses a spreadsheet and, when at least one brand is valid,
// replaces the current dataset with it. The raw bytes are archived when
// object storage is configured.
func (s *InventoryService) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	res, err := s.load(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	res.ArchiveKey, err = s.archive.SaveUpload(ctx, filename, data, contentTypeFor(filename))
	if err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("upload archive failed")
	}
	return res, nil
}

func (s *InventoryService) load(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	if err := s.checkUpload(filename, data); err != nil {
		return nil, err
	}

	g, err := grid.Read(bytes.NewReader(data), filename, grid.Options{
		MaxRows:     s.ingest.MaxRows,
		DefaultYear: s.ingest.DefaultYear,
	})
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}

	result, err := normalizer.Normalize(g, normalizer.Options{MaxBrands: s.ingest.MaxBrands})
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}

	snap, err := s.store.Replace(ctx, result.Records, domain.SnapshotMeta{
		SourceName: filename,
		Layout:     result.Layout.Kind,
		Rejections: result.Rejections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace dataset: %w", err)
	}

	log.Info().
		Str("file", filename).
		Str("layout", string(result.Layout.Kind)).
		Int("brands", len(result.Records)).
		Int("rejected", len(result.Rejections)).
		Int64("version", snap.Version).
		Msg("dataset replaced")

	rejections := result.Rejections
	if rejections == nil {
		rejections = make([]domain.Rejection, 0)
	}
	return &UploadResult{
		SnapshotID: snap.ID,
		Version:    snap.Version,
		SourceName: snap.SourceName,
		Layout:     snap.Layout,
		UploadedAt: snap.UploadedAt,
		BrandCount: len(snap.Records),
		Rejections: rejections,
	}, nil
}

func (s *InventoryService) checkUpload(filename string, data []byte) error {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, a := range AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.NewError(domain.KindMalformedInput,
			"unsupported file type %q; upload one of %s", ext, strings.Join(AllowedExtensions, ", "))
	}
	if len(data) == 0 {
		return domain.NewError(domain.KindMalformedInput, "%s is empty", filename)
	}
	if s.ingest.MaxUploadBytes > 0 && int64(len(data)) > s.ingest.MaxUploadBytes {
		return domain.NewError(domain.KindSizeLimitExceeded,
			"%s is %d bytes; the limit is %d", filename, len(data), s.ingest.MaxUploadBytes)
	}
	return nil
}

// Analytics computes the summary for the current dataset. A nil multiplier
// uses the configured one; top <= 0 uses the configured ranking length.
func (s *InventoryService) Analytics(ctx context.Context, multiplier *float64, top int) (*AnalyticsResult, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}

	m := s.analytics.OverstockMultiplier
	if multiplier != nil {
		m = *multiplier
	}
	summary, findings, err := analytics.Analyze(snap.Records, m)
	if err != nil {
		return nil, err
	}

	if top <= 0 {
		top = s.analytics.TopBrands
	}
	if top > 0 && len(summary.Ranking) > top {
		summary.Ranking = summary.Ranking[:top]
	}

	return &AnalyticsResult{SnapshotID: snap.ID, Summary: summary, Overstock: findings}, nil
}

func (s *InventoryService) Demand(ctx context.Context) (domain.DemandPlan, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return domain.DemandPlan{}, err
	}
	return demand.Recommend(snap.Records), nil
}

// Export renders the demand report for the current dataset.
func (s *InventoryService) Export(ctx context.Context) (*ExportFile, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	plan := demand.Recommend(snap.Records)
	data, err := report.Build(snap.Records, plan.Recommendations, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	out := &ExportFile{Name: report.Filename(now), ContentType: report.ContentType, Data: data}
	if out.ArchiveKey, err = s.archive.SaveReport(ctx, out.Name, data, report.ContentType); err != nil {
		log.Warn().Err(err).Str("file", out.Name).Msg("report archive failed")
	}

	log.Info().
		Str("file", out.Name).
		Int("recommendations", len(plan.Recommendations)).
		Int("review", len(plan.Review)).
		Msg("demand report exported")
	return out, nil
}

// Brands returns the records of the current dataset.
func (s *InventoryService) Brands(ctx context.Context) ([]domain.BrandRecord, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

func (s *InventoryService) Details(ctx context.Context) ([]domain.BrandDetail, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.Details(snap.Records), nil
}

// Charts returns the dashboard chart series for the current dataset.
func (s *InventoryService) Charts(ctx context.Context) (domain.Charts, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return domain.Charts{}, err
	}
	return analytics.Charts(snap.Records), nil
}

// ArchiveEnabled reports whether uploads are kept in object storage.
func (s *InventoryService) ArchiveEnabled() bool { return s.archive.Enabled() }

// ArchivedUploads lists archived uploads, newest first.
func (s *InventoryService) ArchivedUploads(ctx context.Context) ([]storage.ObjectInfo, error) {
	if !s.archive.Enabled() {
		return nil, errArchiveDisabled()
	}
	uploads, err := s.archive.Uploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived uploads: %w", err)
	}
	sort.SliceStable(uploads, func(i, j int) bool {
		if !uploads[i].LastModified.Equal(uploads[j].LastModified) {
			return uploads[i].LastModified.After(uploads[j].LastModified)
		}
		return uploads[i].Key > uploads[j].Key
	})
	return uploads, nil
}

// RestoreUpload makes an archived upload the current dataset again. The
// object is not archived a second time.
func (s *InventoryService) RestoreUpload(ctx context.Context, key string) (*UploadResult, error) {
	if !s.archive.Enabled() {
		return nil, errArchiveDisabled()
	}
	name, ok := s.archive.UploadName(key)
	if !ok {
		return nil, domain.NewError(domain.KindMalformedInput, "%q is not an archived upload", key)
	}

	data, err := s.archive.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}

	res, err := s.load(ctx, name, data)
	if err != nil {
		return nil, err
	}
	res.ArchiveKey = key
	log.Info().Str("key", key).Int64("version", res.Version).Msg("archived upload restored")
	return res, nil
}

// DriveEnabled reports whether the Drive import channel is available.
func (s *InventoryService) DriveEnabled() bool { return s.drive != nil }

// DriveFiles lists importable spreadsheets. folderPath, when set, is
// resolved from the drive root; otherwise the configured folder is used.
func (s *InventoryService) DriveFiles(ctx context.Context, folderPath string) ([]drive.File, error) {
	if s.drive == nil {
		return nil, errDriveDisabled()
	}
	folderID := s.folderID
	if folderPath != "" {
		id, err := s.drive.FindFolderByPath(ctx, folderPath)
		if err != nil {
			return nil, err
		}
		folderID = id
	}
	return s.drive.ListFiles(ctx, folderID)
}

// ImportFromDrive downloads a spreadsheet and uploads it. An empty fileID
// imports the most recently modified spreadsheet of the configured folder.
func (s *InventoryService) ImportFromDrive(ctx context.Context, fileID string) (*UploadResult, error) {
	if s.drive == nil {
		return nil, errDriveDisabled()
	}

	if fileID == "" {
		files, err := s.drive.ListFiles(ctx, s.folderID)
		if err != nil {
			return nil, err
		}
		latest, ok := drive.Latest(files)
		if !ok {
			return nil, domain.NewError(domain.KindEmptyDataset, "the drive folder has no spreadsheet to import")
		}
		fileID = latest.ID
	}

	file, data, err := s.drive.Download(ctx, fileID, s.ingest.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, drive.ErrTooLarge) {
			return nil, domain.NewError(domain.KindSizeLimitExceeded, "%s", err.Error())
		}
		return nil, err
	}
	log.Info().Str("file_id", file.ID).Str("file", file.Name).Int("bytes", len(data)).Msg("drive file downloaded")

	return s.Upload(ctx, file.Name, data)
}

func errArchiveDisabled() error {
	return domain.NewError(domain.KindInvalidConfiguration, "object storage archive is not configured")
}

func errDriveDisabled() error {
	return domain.NewError(domain.KindInvalidConfiguration, "google drive import is not configured")
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".xls":
		return "application/vnd.ms-excel"
	default:
		return report.ContentType
	}
}
