package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/metrics"
)

// Engine crawls a site depth-first, following same-host links until the page
// or depth budget is exhausted. An Engine holds no per-crawl state and may be
// shared across concurrent Crawl calls.
type Engine struct {
	cfg     Config
	fetcher Fetcher
	pauser  pauseController
	logger  *zap.Logger
}

// NewEngine constructs an Engine. Non-positive page and text limits in cfg
// fall back to the defaults; a zero MaxDepth crawls only the start page.
func NewEngine(cfg Config, fetcher Fetcher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg.withDefaults(),
		fetcher: fetcher,
		pauser:  &timerPauseController{},
		logger:  logger,
	}
}

// Config returns the effective crawl bounds.
func (e *Engine) Config() Config {
	return e.cfg
}

type workItem struct {
	url   string
	depth int
}

// session is the state of one crawl invocation.
type session struct {
	baseHost string
	visited  map[string]struct{}
	pages    []PageRecord
	stack    []workItem
	fetched  int
}

func newSession(baseHost string) *session {
	return &session{
		baseHost: baseHost,
		visited:  make(map[string]struct{}),
	}
}

// markVisited records canonical and reports whether it was new.
func (s *session) markVisited(canonical string) bool {
	if _, ok := s.visited[canonical]; ok {
		return false
	}
	s.visited[canonical] = struct{}{}
	return true
}

// pushChildren schedules links so that the first link is popped first.
func (s *session) pushChildren(links []string, depth int) {
	for i := len(links) - 1; i >= 0; i-- {
		if _, seen := s.visited[links[i]]; seen {
			continue
		}
		s.stack = append(s.stack, workItem{url: links[i], depth: depth})
	}
}

func (s *session) pop() workItem {
	item := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return item
}

// Crawl walks the site rooted at startURL and returns the fetched pages in
// discovery order. Only a missing or malformed start URL or a canceled
// context produce an error; individual page failures are logged and skipped.
func (e *Engine) Crawl(ctx context.Context, startURL string) ([]PageRecord, error) {
	startURL = strings.TrimSpace(startURL)
	parsed, err := parseStartURL(startURL)
	if err != nil {
		metrics.ObserveCrawl(metrics.CrawlResultRejected)
		return nil, err
	}

	s := newSession(parsed.Host)
	s.stack = append(s.stack, workItem{url: startURL, depth: 0})
	e.logger.Info("crawl started",
		zap.String("url", startURL),
		zap.Int("max_pages", e.cfg.MaxPages),
		zap.Int("max_depth", e.cfg.MaxDepth),
	)

	for len(s.stack) > 0 {
		if err := ctx.Err(); err != nil {
			metrics.ObserveCrawl(metrics.CrawlResultCanceled)
			return s.pages, fmt.Errorf("crawl canceled: %w", err)
		}
		if len(s.pages) >= e.cfg.MaxPages {
			break
		}
		e.step(ctx, s, s.pop())
	}

	e.logger.Info("crawl finished",
		zap.String("url", startURL),
		zap.Int("pages", len(s.pages)),
		zap.Int("visited", len(s.visited)),
	)
	metrics.ObserveCrawl(metrics.CrawlResultOK)
	return s.pages, nil
}

func parseStartURL(startURL string) (*url.URL, error) {
	if startURL == "" {
		return nil, ErrMissingStartURL
	}
	parsed, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStartURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}
	return parsed, nil
}

func (e *Engine) step(ctx context.Context, s *session, item workItem) {
	if item.depth > e.cfg.MaxDepth {
		return
	}
	canonical := Normalize(item.url)
	// Marked before fetching so a failed or skipped URL is never retried.
	if !s.markVisited(canonical) {
		return
	}
	if IsNonHTMLResource(canonical) {
		return
	}

	if s.fetched > 0 {
		e.pauser.Pause(ctx, e.cfg.Delay)
	}
	s.fetched++

	record, links, ok := e.visit(ctx, s.baseHost, canonical, item.depth)
	if !ok {
		return
	}
	s.pages = append(s.pages, record)
	if item.depth < e.cfg.MaxDepth {
		s.pushChildren(links, item.depth+1)
	}
}

func (e *Engine) visit(ctx context.Context, baseHost, canonical string, depth int) (PageRecord, []string, bool) {
	log := e.logger.With(zap.String("url", canonical), zap.Int("depth", depth))

	resp, err := e.fetcher.Fetch(ctx, canonical)
	if err != nil {
		log.Warn("fetch failed", zap.Error(err))
		metrics.ObservePage(metrics.PageStatusError)
		return PageRecord{}, nil, false
	}
	if !isHTMLContentType(resp.ContentType()) {
		log.Debug("skipping non-html response", zap.String("content_type", resp.ContentType()))
		metrics.ObservePage(metrics.PageStatusSkipped)
		return PageRecord{}, nil, false
	}

	parsed, err := ParsePage(resp.Body, canonical, baseHost)
	if err != nil {
		log.Warn("parse failed", zap.Error(err))
		metrics.ObservePage(metrics.PageStatusError)
		return PageRecord{}, nil, false
	}

	metrics.ObservePage(metrics.PageStatusFetched)
	log.Debug("page fetched", zap.Int("links", len(parsed.Links)), zap.Int("status", resp.StatusCode))
	return PageRecord{
		URL:   canonical,
		Title: parsed.Title,
		Text:  truncateRunes(parsed.Text, e.cfg.MaxTextChars),
		Depth: depth,
	}, parsed.Links, true
}
