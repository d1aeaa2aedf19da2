package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"argus/internal/fileutil"
)

// Filesystem stores blobs as files under a root directory. Keys map to
// relative paths, so nested keys create subdirectories.
type Filesystem struct {
	root string
}

// NewFilesystem returns a filesystem-backed store rooted at root.
func NewFilesystem(root string) (*Filesystem, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("filesystem storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) pathFor(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || cleaned == string(filepath.Separator) ||
		strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(f.root, cleaned), nil
}

// Put implements Store. The content type is ignored; the filesystem backend
// relies on file extensions.
func (f *Filesystem) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (f *Filesystem) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return data, nil
}

// Remove implements Store.
func (f *Filesystem) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %q: %w", key, err)
	}
	return nil
}
