package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard/internal/config"
)

// ErrObjectNotFound is returned by Open when no object exists at the path.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidPath is returned for paths that escape the bucket root.
var ErrInvalidPath = errors.New("invalid object path")

// Bucket stores public files.
type Bucket interface {
	// Put stores r under dir with a generated name and the given extension
	// and returns the relative path of the new object.
	Put(ctx context.Context, dir, ext string, r io.Reader, size int64, contentType string) (string, error)

	// Delete removes the object at p. A missing object is not an error.
	Delete(ctx context.Context, p string) error

	// Exists reports whether an object is stored at p.
	Exists(ctx context.Context, p string) (bool, error)

	// Open returns the object content. It returns ErrObjectNotFound for a missing object.
	Open(ctx context.Context, p string) (io.ReadCloser, error)
}

// New returns the Bucket selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Bucket, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalBucket(cfg.LocalRoot, logger)
	case "s3":
		return NewMinioBucket(ctx, MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// objectName builds "<dir>/<uuid>.<ext>".
func objectName(dir, ext string) string {
	name := uuid.NewString()
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + strings.ToLower(ext)
	}
	return path.Join(strings.Trim(dir, "/"), name)
}

// cleanKey normalizes p to a slash separated key without a leading slash.
// Keys that climb above the root are rejected.
func cleanKey(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if key == "" {
		return "", ErrInvalidPath
	}
	return key, nil
}
