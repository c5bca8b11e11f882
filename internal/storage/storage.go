package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stocklens/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// ObjectStorage captures the S3-compatible operations the archive needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// New returns the backend named by cfg.Provider, or nil when storage is
// disabled.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Provider {
	case config.StorageMinio, "":
		return NewMinioClient(ctx, cfg)
	case config.StorageS3:
		return NewS3Client(cfg)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

const (
	uploadsPrefix = "uploads/"
	reportsPrefix = "reports/"
)

// Archive keeps a copy of every raw upload and exported report. A nil
// backend turns every call into a no-op.
type Archive struct {
	backend ObjectStorage
	prefix  string
	now     func() time.Time
}

func NewArchive(backend ObjectStorage, prefix string) *Archive {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Archive{backend: backend, prefix: prefix, now: time.Now}
}

// Enabled reports whether a backend is configured.
func (a *Archive) Enabled() bool { return a != nil && a.backend != nil }

// SaveUpload stores the raw bytes of an upload and returns the object key.
func (a *Archive) SaveUpload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	key := a.prefix + uploadsPrefix + a.now().UTC().Format("2006/01/02/") + uuid.NewString() + "-" + cleanName(filename)
	if err := a.backend.PutObject(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("failed to archive upload %s: %w", filename, err)
	}
	log.Info().Str("key", key).Int("bytes", len(data)).Msg("upload archived")
	return key, nil
}

// SaveReport stores an exported report under its download filename.
func (a *Archive) SaveReport(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	key := a.prefix + reportsPrefix + cleanName(filename)
	if err := a.backend.PutObject(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("failed to archive report %s: %w", filename, err)
	}
	log.Info().Str("key", key).Int("bytes", len(data)).Msg("report archived")
	return key, nil
}

// Uploads lists archived uploads.
func (a *Archive) Uploads(ctx context.Context) ([]ObjectInfo, error) {
	if !a.Enabled() {
		return []ObjectInfo{}, nil
	}
	return a.backend.ListObjects(ctx, a.prefix+uploadsPrefix)
}

// UploadName returns the original filename of an archived upload key and
// false when key was not written by SaveUpload under this archive's prefix.
func (a *Archive) UploadName(key string) (string, bool) {
	if a == nil || !strings.HasPrefix(key, a.prefix+uploadsPrefix) || strings.Contains(key, "..") {
		return "", false
	}
	base := path.Base(key)
	const idLen = 36
	if len(base) <= idLen+1 || base[idLen] != '-' {
		return "", false
	}
	if _, err := uuid.Parse(base[:idLen]); err != nil {
		return "", false
	}
	return base[idLen+1:], true
}

// Fetch returns an archived object.
func (a *Archive) Fetch(ctx context.Context, key string) ([]byte, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("object storage is not configured")
	}
	return a.backend.GetObject(ctx, key)
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return strings.ReplaceAll(name, " ", "_")
}
