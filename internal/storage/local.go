package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phrazzld/taskboard/internal/platform/logger"
)

// LocalBucket stores objects below a root directory.
type LocalBucket struct {
	root   string
	logger *slog.Logger
}

// NewLocalBucket creates root if needed and returns a bucket rooted there.
func NewLocalBucket(root string, log *slog.Logger) (*LocalBucket, error) {
	if root == "" {
		return nil, errors.New("local storage root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &LocalBucket{
		root:   root,
		logger: log.With(slog.String("component", "local_bucket")),
	}, nil
}

var _ Bucket = (*LocalBucket)(nil)

func (b *LocalBucket) fullPath(p string) (string, error) {
	key, err := cleanKey(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(key)), nil
}

// Put implements Bucket.
func (b *LocalBucket) Put(ctx context.Context, dir, ext string, r io.Reader, _ int64, _ string) (string, error) {
	key := objectName(dir, ext)
	full, err := b.fullPath(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	logger.FromContextOrDefault(ctx, b.logger).Debug("object stored", slog.String("path", key))
	return key, nil
}

// Delete implements Bucket.
func (b *LocalBucket) Delete(ctx context.Context, p string) error {
	full, err := b.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	logger.FromContextOrDefault(ctx, b.logger).Debug("object deleted", slog.String("path", p))
	return nil
}

// Exists implements Bucket.
func (b *LocalBucket) Exists(_ context.Context, p string) (bool, error) {
	full, err := b.fullPath(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	return !info.IsDir(), nil
}

// Open implements Bucket.
func (b *LocalBucket) Open(_ context.Context, p string) (io.ReadCloser, error) {
	full, err := b.fullPath(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	if info, err := f.Stat(); err == nil && info.IsDir() {
		_ = f.Close()
		return nil, ErrObjectNotFound
	}
	return f, nil
}
