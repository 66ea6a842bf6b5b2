package crawler

import "context"

// Fetcher performs a single HTTP GET (following redirects) and returns the
// body plus response metadata. Transport failures are returned as errors.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResponse, error)
}
