package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stocklens/internal/config"
	"github.com/andresuchdata/stocklens/internal/dataset"
	"github.com/andresuchdata/stocklens/internal/drive"
	"github.com/andresuchdata/stocklens/internal/report"
	"github.com/andresuchdata/stocklens/internal/service"
	"github.com/andresuchdata/stocklens/internal/storage"
)

const stockCSV = `Index,Brand Name,Rate,Quantity,Monthly Sale value,Stock value Today
101,Royal Stag,100,10,100,350
102,Blenders Pride,50,1,200,50
`

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDrive struct{}

func (stubDrive) ListFiles(context.Context, string) ([]drive.File, error) {
	return []drive.File{{ID: "f1", Name: "stock.csv", ModifiedTime: "2025-09-01T00:00:00Z"}}, nil
}

func (stubDrive) Download(_ context.Context, fileID string, _ int64) (drive.File, []byte, error) {
	return drive.File{ID: fileID, Name: "stock.csv"}, []byte(stockCSV), nil
}

func (stubDrive) FindFolderByPath(_ context.Context, path string) (string, error) {
	return "", drive.ErrFolderNotFound
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
	return b.objects[key], nil
}

func (b *memoryBucket) PutObject(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func newTestRouter(t *testing.T, src service.DriveSource) *gin.Engine {
	return newArchivingRouter(t, src, nil)
}

func newArchivingRouter(t *testing.T, src service.DriveSource, archive *storage.Archive) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		Analytics: config.AnalyticsConfig{OverstockMultiplier: 3.0, TopBrands: 10},
		Ingest:    config.IngestConfig{MaxRows: 100, MaxBrands: 50, MaxUploadBytes: 1 << 20},
	}
	svc := service.NewInventoryService(dataset.NewMemoryStore(), archive, src, cfg)
	return NewRouter(&Services{Inventory: svc, MaxUploadBytes: cfg.Ingest.MaxUploadBytes}, []string{"*"})
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueriesBeforeUploadReturnNotFound(t *testing.T) {
	router := newTestRouter(t, nil)
	for _, path := range []string{"/api/v1/analytics", "/api/v1/charts", "/api/v1/demand", "/api/v1/demand/export", "/api/v1/brands", "/api/v1/brands/details"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "NoDataset", decode(t, rec)["error"])
		})
	}
}

func TestUploadAndQuery(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := serve(router, uploadRequest(t, "stock.csv", []byte(stockCSV)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	uploaded := decode(t, rec)["dataset"].(map[string]interface{})
	assert.Equal(t, float64(2), uploaded["brand_count"])

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?overstock_multiplier=3&top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(400), summary["total_stock_value"])
	assert.Len(t, summary["top_selling_brands"], 1)
	assert.Len(t, body["overstock_analysis"], 1)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/charts", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	charts := decode(t, rec)
	assert.Len(t, charts["volume_leaders"], 2)
	revenue := charts["revenue_leaders"].([]interface{})
	require.Len(t, revenue, 2)
	assert.Equal(t, "Blenders Pride", revenue[0].(map[string]interface{})["name"])
	share := charts["revenue_proportion"].([]interface{})
	require.Len(t, share, 2)
	assert.InDelta(t, 66.67, share[0].(map[string]interface{})["percentage"], 1e-9)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/demand", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/brands", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"])

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/brands/details", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/demand/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "demand_forecast_")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestUploadErrors(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		kind     string
	}{
		{"wrong extension", "stock.txt", stockCSV, http.StatusBadRequest, "MalformedInput"},
		{"empty file", "stock.csv", "", http.StatusBadRequest, "MalformedInput"},
		{"insufficient data", "list.csv", "Brand A\n1\n2\n", http.StatusBadRequest, "InsufficientData"},
		{"no valid brands", "stock.csv", "Brand Name,Rate,Quantity\nX,-1,2\n", http.StatusBadRequest, "EmptyDataset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, uploadRequest(t, tt.filename, []byte(tt.content)))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.kind, decode(t, rec)["error"])
		})
	}
}

func TestUploadRejectionsAreReported(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := serve(router, uploadRequest(t, "stock.csv", []byte("Brand Name,Rate,Quantity\nX,-1,2\n")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rejections := decode(t, rec)["rejections"].([]interface{})
	require.Len(t, rejections, 1)
	assert.Equal(t, "X", rejections[0].(map[string]interface{})["brand"])
}

func TestUploadWithoutFile(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", nil)
	rec := serve(router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsRejectsBadMultiplier(t *testing.T) {
	router := newTestRouter(t, nil)
	require.Equal(t, http.StatusOK, serve(router, uploadRequest(t, "stock.csv", []byte(stockCSV))).Code)

	for _, q := range []string{"overstock_multiplier=0", "overstock_multiplier=-2", "overstock_multiplier=abc", "top=0"} {
		t.Run(q, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "InvalidConfiguration", decode(t, rec)["error"])
		})
	}
}

func TestDriveRoutes(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/drive/files", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "drive routes are not mounted without credentials")

	router = newTestRouter(t, stubDrive{})
	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/drive/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/drive/files?path=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/drive/import?file_id=f1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/brands", nil))
	assert.Equal(t, float64(2), decode(t, rec)["count"])
}

func TestArchiveRoutes(t *testing.T) {
	rec := serve(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "archive routes are not mounted without storage")

	router := newArchivingRouter(t, nil, storage.NewArchive(&memoryBucket{objects: map[string][]byte{}}, ""))

	rec = serve(router, uploadRequest(t, "stock.csv", []byte(stockCSV)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	key := decode(t, rec)["dataset"].(map[string]interface{})["archive_key"].(string)
	require.NotEmpty(t, key)

	rec = serve(router, uploadRequest(t, "small.csv", []byte("Brand Name,Rate,Quantity\nRoyal Stag,100,4\n")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"])

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/uploads/restore", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/uploads/restore?key="+url.QueryEscape(key), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	restored := decode(t, rec)["dataset"].(map[string]interface{})
	assert.Equal(t, "stock.csv", restored["source_name"])
	assert.Equal(t, float64(3), restored["version"])

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/brands", nil))
	assert.Equal(t, float64(2), decode(t, rec)["count"])
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
