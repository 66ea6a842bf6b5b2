package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/analyzer"
	"github.com/JakeFAU/market-potential-crawler/internal/archive"
	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
	"github.com/JakeFAU/market-potential-crawler/internal/market"
	"github.com/JakeFAU/market-potential-crawler/internal/metrics"
)

// DefaultRequestTimeout bounds a single API request. A full crawl plus
// politeness delays can take well over a minute.
const DefaultRequestTimeout = 5 * time.Minute

const maxBodyBytes = 10 << 20

// Crawler walks a site and returns its pages.
type Crawler interface {
	Crawl(ctx context.Context, startURL string) ([]crawler.PageRecord, error)
}

// Summarizer turns crawled pages into a business summary.
type Summarizer interface {
	Analyze(ctx context.Context, siteURL string, pages []crawler.PageRecord) (analyzer.Analysis, error)
}

// MarketFetcher builds market reports for locations.
type MarketFetcher interface {
	FetchMany(ctx context.Context, locs []market.Location) ([]market.Report, error)
}

// Archive persists results after a request has been served.
type Archive interface {
	ArchiveCrawl(ctx context.Context, rootURL string, pages []crawler.PageRecord) (archive.CrawlReceipt, error)
	ArchiveReports(ctx context.Context, reports []market.Report)
}

// HealthInfo is reported by GET /api/health.
type HealthInfo struct {
	Version        string          `json:"version"`
	Model          string          `json:"ai_model"`
	KeysConfigured map[string]bool `json:"keys_configured"`
}

// Options configures middleware behavior.
type Options struct {
	AuthEnabled    bool
	APIKey         string
	RequestTimeout time.Duration
	Health         HealthInfo
}

// Deps wires the handlers to the service collaborators. Archive may be nil.
type Deps struct {
	Crawler  Crawler
	Analyzer Summarizer
	Market   MarketFetcher
	Archive  Archive
	Logger   *zap.Logger
}

// Server wires HTTP handlers to the crawler, analyzer, and market service.
type Server struct {
	router chi.Router
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{deps: deps, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(timeoutMiddleware(opts.RequestTimeout))
		if opts.AuthEnabled {
			r.Use(apiKeyMiddleware(opts.APIKey))
		}
		r.Get("/health", s.health)
		r.Post("/crawl", s.crawl)
		r.Post("/analyze", s.analyze)
		r.Post("/market-data", s.marketData)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Crawler == nil || s.deps.Analyzer == nil || s.deps.Market == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	keys := s.opts.Health.KeysConfigured
	if keys == nil {
		keys = map[string]bool{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"version":         s.opts.Health.Version,
		"ai_model":        s.opts.Health.Model,
		"keys_configured": keys,
	})
}

type crawlRequest struct {
	URL string `json:"url"`
}

type crawlResponse struct {
	Pages      []crawler.PageRecord `json:"pages"`
	TotalPages int                  `json:"total_pages"`
	RootURL    string               `json:"root_url"`
}

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pages, err := s.deps.Crawler.Crawl(r.Context(), req.URL)
	switch {
	case errors.Is(err, crawler.ErrMissingStartURL):
		writeError(w, http.StatusBadRequest, "URLが必要です")
		return
	case errors.Is(err, crawler.ErrInvalidStartURL):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Warn("crawl failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("クロール中にエラー: %v", err))
		return
	}
	if pages == nil {
		pages = []crawler.PageRecord{}
	}

	if s.deps.Archive != nil {
		if _, err := s.deps.Archive.ArchiveCrawl(r.Context(), req.URL, pages); err != nil {
			s.logger.Warn("crawl archive failed", zap.String("url", req.URL), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, crawlResponse{Pages: pages, TotalPages: len(pages), RootURL: req.URL})
}

type analyzeRequest struct {
	URL   string               `json:"url"`
	Pages []crawler.PageRecord `json:"pages"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.deps.Analyzer.Analyze(r.Context(), req.URL, req.Pages)
	switch {
	case errors.Is(err, analyzer.ErrNoPages):
		writeError(w, http.StatusBadRequest, "ページデータが必要です")
		return
	case err != nil:
		s.logger.Warn("analysis failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("分析中にエラー: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type marketRequest struct {
	Locations []market.Location `json:"locations"`
}

func (s *Server) marketData(w http.ResponseWriter, r *http.Request) {
	var req marketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reports, err := s.deps.Market.FetchMany(r.Context(), req.Locations)
	switch {
	case errors.Is(err, market.ErrNoLocations):
		writeError(w, http.StatusBadRequest, "所在地情報が必要です")
		return
	case err != nil:
		s.logger.Warn("market data failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("市場データ取得エラー: %v", err))
		return
	}

	if s.deps.Archive != nil {
		s.deps.Archive.ArchiveReports(r.Context(), reports)
	}
	writeJSON(w, http.StatusOK, reports)
}

// decodeJSON reads the request body into dst. An empty body leaves dst at its
// zero value so the handler reports the missing field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request ID stored by the middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("error", rec),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
