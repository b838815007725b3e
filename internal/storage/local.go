package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalClient stores objects as files in a flat directory.
type LocalClient struct {
	dir string
}

// NewLocalClient constructs a filesystem backend rooted at dir.
func NewLocalClient(dir string) (*LocalClient, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("documents directory is required")
	}
	return &LocalClient{dir: dir}, nil
}

// EnsureBucket creates the documents directory when absent.
func (l *LocalClient) EnsureBucket(ctx context.Context) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.dir, err)
	}
	return nil
}

// Put writes an object, creating the directory when needed.
func (l *LocalClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := l.EnsureBucket(ctx); err != nil {
		return err
	}
	f, err := os.Create(l.Location(key))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Get opens an object for reading.
func (l *LocalClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.Location(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes an object.
func (l *LocalClient) Delete(ctx context.Context, key string) error {
	err := os.Remove(l.Location(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// Location returns the relative file path of key.
func (l *LocalClient) Location(key string) string {
	return filepath.Join(l.dir, key)
}

// Bucket returns the documents directory.
func (l *LocalClient) Bucket() string {
	return l.dir
}
