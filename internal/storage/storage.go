// Package storage keeps uploaded images and hands out URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/config"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrInvalidName = errors.New("invalid object name")
)

// Object is a stored blob.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Store persists objects by name.
type Store interface {
	// Put stores data under name and returns its public URL.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Get(ctx context.Context, name string) (*Object, error)
	Close() error
}

// New opens the backend selected by cfg.
func New(cfg config.StorageConfig, logger hclog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir, cfg.PublicURL)
	case "sql":
		pool, err := NewPool(cfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Migrate(context.Background(), logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return NewSQLStore(pool, cfg.PublicURL), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (valid: local, sql)", cfg.Backend)
	}
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Extension returns the file extension for a MIME type, ".bin" when unknown.
func Extension(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ext, ok := extensions[ct]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(ct); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// ContentType guesses the MIME type from an object name.
func ContentType(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "application/octet-stream"
	}
	ext := strings.ToLower(name[i:])
	for ct, e := range extensions {
		if e == ext && ct != "image/jpg" {
			return ct
		}
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ObjectName returns a fresh name for the n-th upload of a batch, e.g.
// image_<uuid>_0.png.
func ObjectName(n int, contentType string) string {
	return fmt.Sprintf("image_%s_%d%s", uuid.NewString(), n, Extension(contentType))
}

// ValidateName rejects names that could escape the storage root.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func publicURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}
