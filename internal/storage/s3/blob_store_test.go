package s3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRequiresEndpointAndBucket(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Bucket: "archive"})
	require.ErrorContains(t, err, "endpoint is required")

	_, err = Open(context.Background(), Config{Endpoint: "localhost:9000"})
	require.ErrorContains(t, err, "bucket name is required")
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store := &BlobStore{bucket: "archive"}
	_, err := store.PutObject(context.Background(), " ", "application/json", nil)
	require.ErrorContains(t, err, "path is required")
}
