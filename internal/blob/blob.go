// Package blob stores uploaded machine documents outside the database.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"machinery-backend/config"
)

// Store saves and retrieves opaque objects by key.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	// Open returns the object body. Missing keys yield an error wrapping model.ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "filesystem":
		return NewFilesystem(cfg.Root)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// cleanKey rejects keys that would escape the store's namespace.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return k, nil
}
