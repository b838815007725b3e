package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicap/personnel/config"
)

func newLocalStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data", "documentos")
	backend, err := NewLocalClient(dir)
	require.NoError(t, err)
	return NewStorage(backend), dir
}

func TestStorage_StoreCreatesDirectory(t *testing.T) {
	s, dir := newLocalStorage(t)

	location, err := s.Store(context.Background(), 7, "cv.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "7_cv.pdf"), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestStorage_StoreStripsDirectories(t *testing.T) {
	s, dir := newLocalStorage(t)

	location, err := s.Store(context.Background(), 2, "../../etc/foto.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2_foto.png"), location)

	location, err = s.Store(context.Background(), 3, `C:\Users\ana\carnet.jpg`, []byte("jpg"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "3_carnet.jpg"), location)
}

func TestStorage_StoreRejectsEmptyName(t *testing.T) {
	s, _ := newLocalStorage(t)

	_, err := s.Store(context.Background(), 1, "  ", []byte("x"))
	require.Error(t, err)
}

func TestStorage_OpenByLocation(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStorage(t)

	location, err := s.Store(ctx, 4, "doc.pdf", []byte("contents"))
	require.NoError(t, err)

	rc, key, err := s.Open(ctx, location)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "4_doc.pdf", key)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))

	require.NoError(t, s.Delete(ctx, location))
	_, _, err = s.Open(ctx, location)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_OpenInvalidLocation(t *testing.T) {
	s, _ := newLocalStorage(t)

	_, _, err := s.Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestKeyFromLocation(t *testing.T) {
	assert.Equal(t, "1_a.pdf", KeyFromLocation("data/documentos/1_a.pdf"))
	assert.Equal(t, "1_a.pdf", KeyFromLocation(`data\documentos\1_a.pdf`))
	assert.Equal(t, "9_b.png", KeyFromLocation("s3://documentos/9_b.png"))
	assert.Equal(t, "9_b.png", KeyFromLocation("gs://bucket/9_b.png"))
	assert.Equal(t, "", KeyFromLocation(""))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("1_a.PDF"))
	assert.Equal(t, "image/png", ContentType("1_a.png"))
	assert.Equal(t, "application/octet-stream", ContentType("1_a"))
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := config.Config{Data: config.DataConfig{DocumentsDir: t.TempDir()}}

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Data.DocumentsDir, s.Bucket())

	cfg.Storage.Backend = "ftp"
	_, err = New(context.Background(), cfg)
	require.Error(t, err)

	cfg.Storage.Backend = config.StorageBackendMinio
	_, err = New(context.Background(), cfg)
	require.Error(t, err, "minio without credentials")
}

func TestInlineDisposition(t *testing.T) {
	assert.Equal(t, "inline; filename=7_cv.pdf", inlineDisposition("7_cv.pdf"))
}
