// Package storage holds the object store backends for uploaded report images.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

// ObjectStore persists binaries and returns a durable reference to them.
type ObjectStore interface {
	Put(ctx context.Context, in PutInput) (StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// PutInput describes one object write. Size may be -1 when unknown.
type PutInput struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// StoredObject is the confirmed result of a Put. URL is the durable content
// reference; Key is what Delete expects.
type StoredObject struct {
	URL  string
	Key  string
	Size int64
}

// New builds the configured backend.
func New(ctx context.Context, cfg config.StorageConfig, appEnv string) (ObjectStore, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return NewS3Store(ctx, cfg.S3, appEnv)
	case config.StorageDriverLocal:
		return NewLocalStore(cfg.LocalDir, cfg.LocalPublicURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ObjectKey generates the key for a report image.
// Format: reports/YYYY/MM/UUID.ext
func ObjectKey(id, ext string, at time.Time) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	at = at.UTC()
	return fmt.Sprintf("reports/%04d/%02d/%s%s", at.Year(), int(at.Month()), id, ext)
}

// ContentTypeForExt returns the MIME type based on file extension.
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".avif":
		return "image/avif"
	case ".bmp":
		return "image/bmp"
	case ".heic":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

// ExtForContentType is the inverse of ContentTypeForExt for sniffed uploads.
func ExtForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/avif":
		return ".avif"
	case "image/bmp":
		return ".bmp"
	case "image/heic":
		return ".heic"
	default:
		return ""
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path.Clean("/"+key), "/")
}
