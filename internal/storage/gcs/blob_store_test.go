package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewValidatesArguments(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "bucket"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{})
	assert.Error(t, err)
}

func TestCloseWithoutOwnedClient(t *testing.T) {
	t.Parallel()

	var store *BlobStore
	assert.NoError(t, store.Close())
	assert.NoError(t, (&BlobStore{bucket: "b"}).Close())
}
