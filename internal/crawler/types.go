package crawler

import (
	"errors"
	"net/http"
	"time"
)

// Errors returned to callers for rejected crawl requests. Page-level failures
// are never surfaced as errors.
var (
	ErrMissingStartURL = errors.New("start url is required")
	ErrInvalidStartURL = errors.New("start url must be an absolute http(s) url")
)

// PageRecord is produced for every HTML page fetched during a crawl.
type PageRecord struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Depth int    `json:"depth"`
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the declared Content-Type header, if any.
func (r FetchResponse) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// Config bounds a single crawl invocation.
type Config struct {
	MaxPages     int
	MaxDepth     int
	Delay        time.Duration
	MaxTextChars int
}

// Default crawl bounds.
const (
	DefaultMaxPages     = 20
	DefaultMaxDepth     = 2
	DefaultDelay        = 300 * time.Millisecond
	DefaultMaxTextChars = 5000
)

// DefaultConfig returns the standard crawl bounds.
func DefaultConfig() Config {
	return Config{
		MaxPages:     DefaultMaxPages,
		MaxDepth:     DefaultMaxDepth,
		Delay:        DefaultDelay,
		MaxTextChars: DefaultMaxTextChars,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.MaxDepth < 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.MaxTextChars <= 0 {
		c.MaxTextChars = DefaultMaxTextChars
	}
	return c
}
