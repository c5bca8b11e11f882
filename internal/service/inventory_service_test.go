package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stocklens/internal/config"
	"github.com/andresuchdata/stocklens/internal/dataset"
	"github.com/andresuchdata/stocklens/internal/domain"
	"github.com/andresuchdata/stocklens/internal/drive"
	"github.com/andresuchdata/stocklens/internal/report"
	"github.com/andresuchdata/stocklens/internal/storage"
)

const inventoryCSV = `Index,Brand Name,Rate,Quantity,Monthly Sale value,Stock value Today
101,Royal Stag,100,10,100,350
102,Blenders Pride,50,1,200,50
103,Old Monk,0,5,500,0
`

func testConfig() *config.Config {
	return &config.Config{
		Analytics: config.AnalyticsConfig{OverstockMultiplier: 3.0, TopBrands: 10},
		Ingest:    config.IngestConfig{MaxRows: 100, MaxBrands: 50, MaxUploadBytes: 1 << 20},
		Drive:     config.DriveConfig{FolderID: "folder-1"},
	}
}

func newTestService(src DriveSource) *InventoryService {
	svc := NewInventoryService(dataset.NewMemoryStore(), nil, src, testConfig())
	svc.now = func() time.Time { return time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestUploadReplacesDataset(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	res, err := svc.Upload(ctx, "stock.csv", []byte(inventoryCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, res.BrandCount)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, string(domain.LayoutColumn), res.Layout)
	assert.Empty(t, res.Rejections)

	res, err = svc.Upload(ctx, "small.csv", []byte("Brand Name,Rate,Quantity\nRoyal Stag,100,4\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)

	brands, err := svc.Brands(ctx)
	require.NoError(t, err)
	require.Len(t, brands, 1)
	assert.Equal(t, 4.0, brands[0].QuantityCurrentStock)
}

func TestUploadValidation(t *testing.T) {
	svc := newTestService(nil)
	svc.ingest.MaxUploadBytes = 16

	tests := []struct {
		name     string
		filename string
		data     string
		want     error
	}{
		{"unsupported extension", "stock.pdf", "x", domain.ErrMalformedInput},
		{"empty", "stock.csv", "", domain.ErrMalformedInput},
		{"too large", "stock.csv", "Brand Name,Rate,Quantity\n", domain.ErrSizeLimitExceeded},
		{"no valid brand", "stock.csv", "Name,Rate\n,5\n", domain.ErrEmptyDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.filename, []byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err)
		})
	}
}

func TestFailedUploadKeepsPreviousDataset(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "stock.csv", []byte(inventoryCSV))
	require.NoError(t, err)

	_, err = svc.Upload(ctx, "list.csv", []byte("Brand A\nBrand B\n1\n2\n3\n4\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientData))

	brands, err := svc.Brands(ctx)
	require.NoError(t, err)
	assert.Len(t, brands, 3)
}

func TestQueriesBeforeUpload(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Analytics(ctx, nil, 0)
	assert.True(t, errors.Is(err, domain.ErrNoDataset))
	_, err = svc.Demand(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoDataset))
	_, err = svc.Export(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoDataset))
	_, err = svc.Details(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoDataset))
	_, err = svc.Charts(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoDataset))
}

func TestAnalytics(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	_, err := svc.Upload(ctx, "stock.csv", []byte(inventoryCSV))
	require.NoError(t, err)

	res, err := svc.Analytics(ctx, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.TotalBrands)
	assert.Equal(t, 400.0, res.Summary.TotalStockValue)
	require.Len(t, res.Overstock, 1)
	assert.Equal(t, int64(101), res.Overstock[0].Index)
	assert.Equal(t, 50.0, res.Overstock[0].OverstockValue)

	res, err = svc.Analytics(ctx, nil, 2)
	require.NoError(t, err)
	assert.Len(t, res.Summary.Ranking, 2)

	lenient := 4.0
	res, err = svc.Analytics(ctx, &lenient, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Overstock)
	assert.Equal(t, 4.0, res.Summary.Multiplier)

	bad := 0.0
	_, err = svc.Analytics(ctx, &bad, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}

func TestDemandAndExport(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	_, err := svc.Upload(ctx, "stock.csv", []byte(inventoryCSV))
	require.NoError(t, err)

	plan, err := svc.Demand(ctx)
	require.NoError(t, err)
	require.Len(t, plan.Recommendations, 1)
	assert.Equal(t, int64(102), plan.Recommendations[0].Index)
	assert.Equal(t, 3.0, plan.Recommendations[0].QuantityToBeDemanded)
	assert.Equal(t, domain.UrgencyHigh, plan.Recommendations[0].Urgency)
	require.Len(t, plan.Review, 1)
	assert.Equal(t, int64(103), plan.Review[0].Index)

	out, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "demand_forecast_20250901.xlsx", out.Name)
	assert.Equal(t, report.ContentType, out.ContentType)
	assert.Empty(t, out.ArchiveKey)

	reuploaded, err := svc.Upload(ctx, out.Name, out.Data)
	require.NoError(t, err, "an exported report can be uploaded again")
	assert.Equal(t, 1, reuploaded.BrandCount)
}

func TestDetails(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	_, err := svc.Upload(ctx, "stock.csv", []byte(inventoryCSV))
	require.NoError(t, err)

	details, err := svc.Details(ctx)
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, int64(101), details[0].Index)
	assert.Nil(t, details[2].MonthlySalesQuantity)
}

type fakeDrive struct {
	files    []drive.File
	content  map[string][]byte
	folders  map[string]string
	listedIn string
}

func (f *fakeDrive) ListFiles(_ context.Context, folderID string) ([]drive.File, error) {
	f.listedIn = folderID
	return f.files, nil
}

func (f *fakeDrive) Download(_ context.Context, fileID string, maxBytes int64) (drive.File, []byte, error) {
	for _, file := range f.files {
		if file.ID != fileID {
			continue
		}
		data := f.content[fileID]
		if int64(len(data)) > maxBytes {
			return file, nil, drive.ErrTooLarge
		}
		return file, data, nil
	}
	return drive.File{}, nil, errors.New("file not found")
}

func (f *fakeDrive) FindFolderByPath(_ context.Context, path string) (string, error) {
	id, ok := f.folders[path]
	if !ok {
		return "", drive.ErrFolderNotFound
	}
	return id, nil
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"Brand Name", "Rate", "Quantity"},
		{"Royal Stag", 100, 7},
		{"Blenders Pride", 50, 3},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestImportFromDrive(t *testing.T) {
	src := &fakeDrive{
		files: []drive.File{
			{ID: "old", Name: "aug.csv", ModifiedTime: "2025-08-31T10:00:00.000Z"},
			{ID: "new", Name: "Inventory.xlsx", ModifiedTime: "2025-09-01T07:00:00.000Z"},
		},
		content: map[string][]byte{"old": []byte(inventoryCSV)},
		folders: map[string]string{"stock/2025": "folder-2"},
	}
	src.content["new"] = workbookBytes(t)
	svc := newTestService(src)
	ctx := context.Background()

	res, err := svc.ImportFromDrive(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", src.listedIn)
	assert.Equal(t, "Inventory.xlsx", res.SourceName)
	assert.Equal(t, 2, res.BrandCount)

	res, err = svc.ImportFromDrive(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 3, res.BrandCount)

	_, err = svc.DriveFiles(ctx, "stock/2025")
	require.NoError(t, err)
	assert.Equal(t, "folder-2", src.listedIn)

	_, err = svc.DriveFiles(ctx, "missing")
	assert.True(t, errors.Is(err, drive.ErrFolderNotFound))

	svc.ingest.MaxUploadBytes = 8
	_, err = svc.ImportFromDrive(ctx, "old")
	assert.True(t, errors.Is(err, domain.ErrSizeLimitExceeded))
}

func TestImportFromDriveEmptyFolder(t *testing.T) {
	svc := newTestService(&fakeDrive{files: []drive.File{{ID: "x", Name: "notes.txt"}}})
	_, err := svc.ImportFromDrive(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrEmptyDataset))
}

func TestDriveDisabled(t *testing.T) {
	svc := newTestService(nil)
	assert.False(t, svc.DriveEnabled())

	_, err := svc.ImportFromDrive(context.Background(), "abc")
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
	_, err = svc.DriveFiles(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}

type memoryBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memoryBucket) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []storage.ObjectInfo{}
	for k, v := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (b *memoryBucket) GetObject(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (b *memoryBucket) PutObject(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func TestArchivedUploadRestore(t *testing.T) {
	bucket := &memoryBucket{objects: map[string][]byte{}}
	svc := NewInventoryService(dataset.NewMemoryStore(), storage.NewArchive(bucket, "stocklens"), nil, testConfig())
	ctx := context.Background()
	require.True(t, svc.ArchiveEnabled())

	first, err := svc.Upload(ctx, "stock.csv", []byte(inventoryCSV))
	require.NoError(t, err)
	require.NotEmpty(t, first.ArchiveKey)
	_, err = svc.Upload(ctx, "small.csv", []byte("Brand Name,Rate,Quantity\nRoyal Stag,100,4\n"))
	require.NoError(t, err)

	uploads, err := svc.ArchivedUploads(ctx)
	require.NoError(t, err)
	assert.Len(t, uploads, 2)

	restored, err := svc.RestoreUpload(ctx, first.ArchiveKey)
	require.NoError(t, err)
	assert.Equal(t, "stock.csv", restored.SourceName)
	assert.Equal(t, 3, restored.BrandCount)
	assert.Equal(t, int64(3), restored.Version)
	assert.Equal(t, first.ArchiveKey, restored.ArchiveKey)
	assert.Len(t, bucket.objects, 2, "a restore is not archived again")

	brands, err := svc.Brands(ctx)
	require.NoError(t, err)
	assert.Len(t, brands, 3)
}

func TestRestoreUploadRejectsKeys(t *testing.T) {
	bucket := &memoryBucket{objects: map[string][]byte{"reports/demand_forecast_20250901.xlsx": []byte("PK")}}
	svc := NewInventoryService(dataset.NewMemoryStore(), storage.NewArchive(bucket, ""), nil, testConfig())
	ctx := context.Background()

	_, err := svc.RestoreUpload(ctx, "reports/demand_forecast_20250901.xlsx")
	assert.True(t, errors.Is(err, domain.ErrMalformedInput), err)

	_, err = svc.RestoreUpload(ctx, "uploads/2025/09/01/0b5a8f4e-5d7c-4a3b-9a43-2f1c7c3f9e10-gone.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such key")

	_, err = svc.Brands(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoDataset))
}

func TestArchiveDisabled(t *testing.T) {
	svc := newTestService(nil)
	assert.False(t, svc.ArchiveEnabled())

	_, err := svc.ArchivedUploads(context.Background())
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
	_, err = svc.RestoreUpload(context.Background(), "uploads/x.csv")
	assert.True(t, errors.Is(err, domain.ErrInvalidConfiguration))
}
