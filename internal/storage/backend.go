package storage

import (
	"context"
	"fmt"

	"github.com/cicap/personnel/config"
)

// New builds the document storage selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg config.Config) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Storage.Backend {
	case "", config.StorageBackendLocal:
		backend, err = NewLocalClient(cfg.Data.DocumentsDir)
	case config.StorageBackendMinio:
		backend, err = NewMinioClient(cfg.Storage.Minio)
	case config.StorageBackendGCS:
		backend, err = NewGCSClient(ctx, cfg.Storage.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewStorage(backend), nil
}
