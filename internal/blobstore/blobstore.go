package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"argus/internal/config"
)

// ErrNotFound reports that no blob exists under the requested key.
var ErrNotFound = errors.New("blob not found")

// Store reads and writes binary objects addressed by key.
type Store interface {
	// Put stores data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the object stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Remove deletes the object under key. Removing a missing key is not
	// an error.
	Remove(ctx context.Context, key string) error
}

const artifactFolder = "traditional-analysis"

// ImageKey returns the canonical object key for an uploaded image blob.
// Content addressing keeps re-submissions of identical bytes idempotent.
func ImageKey(contentHash string) string {
	return "images/" + contentHash
}

// ArtifactKey returns the object key for a detector visualization artifact.
func ArtifactKey(contentHash, kind string, at time.Time) string {
	return fmt.Sprintf("%s/%s_%s_%d.png", artifactFolder, contentHash, kind, at.UnixMilli())
}

// FromConfig builds the blob store backend selected by the configuration.
func FromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendFilesystem:
		return NewFilesystem(cfg.Storage.FilesystemRoot)
	case config.StorageBackendMinio:
		return NewMinio(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
