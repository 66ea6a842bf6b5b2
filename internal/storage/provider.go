// Package storage defines the blob store abstraction used for crawl archives.
// Implementations live in the gcs, local, and memory subpackages.
package storage

import (
	"context"
	"io"
)

// BlobStore persists an object and returns a URI describing where it landed.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// NoOp discards every object. It backs the "none" storage backend.
type NoOp struct{}

// PutObject drains nothing and returns an empty URI.
func (NoOp) PutObject(_ context.Context, _ string, _ string, _ io.Reader) (string, error) {
	return "", nil
}
