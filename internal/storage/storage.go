package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Location returns the string recorded in a record's attachment column.
	Location(key string) string
	Bucket() string
}

// ErrNotFound is returned when a document does not exist in the backend.
var ErrNotFound = errors.New("document not found")

// ErrInvalidLocation is returned when an attachment path does not name a
// stored document.
var ErrInvalidLocation = errors.New("invalid attachment location")

// Storage wraps an ObjectStorage backend with the document sideload API.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Store writes an attachment for recordID under the key "<id>_<filename>"
// and returns the location to record on the row. Only the base name of
// filename is kept.
func (s *Storage) Store(ctx context.Context, recordID int, filename string, data []byte) (string, error) {
	key, err := DocumentKey(recordID, filename)
	if err != nil {
		return "", err
	}
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType(key)); err != nil {
		return "", fmt.Errorf("store document %s: %w", key, err)
	}
	return s.backend.Location(key), nil
}

// Open reads back a document by the location Store returned.
func (s *Storage) Open(ctx context.Context, location string) (io.ReadCloser, string, error) {
	key := KeyFromLocation(location)
	if key == "" {
		return nil, "", ErrInvalidLocation
	}
	rc, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rc, key, nil
}

// Delete removes the document at location.
func (s *Storage) Delete(ctx context.Context, location string) error {
	key := KeyFromLocation(location)
	if key == "" {
		return ErrInvalidLocation
	}
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// DocumentKey builds the flat object key for a record attachment.
func DocumentKey(recordID int, filename string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", errors.New("attachment filename is required")
	}
	return strconv.Itoa(recordID) + "_" + base, nil
}

// KeyFromLocation extracts the object key from a recorded location. Every
// backend places the key as the final path element.
func KeyFromLocation(location string) string {
	location = strings.TrimSpace(strings.ReplaceAll(location, "\\", "/"))
	if location == "" {
		return ""
	}
	key := path.Base(location)
	if key == "." || key == "/" || key == ".." {
		return ""
	}
	return key
}

// ContentType guesses the MIME type of key from its extension.
func ContentType(key string) string {
	return contentType(key)
}

func inlineDisposition(key string) string {
	return mime.FormatMediaType("inline", map[string]string{"filename": key})
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
