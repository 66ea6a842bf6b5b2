// Package metrics exposes Prometheus collectors for the crawler and market services.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page outcome labels for crawler_pages_total.
const (
	PageStatusFetched = "fetched"
	PageStatusSkipped = "skipped"
	PageStatusError   = "error"
)

// Crawl result labels for crawler_crawls_total.
const (
	CrawlResultOK       = "ok"
	CrawlResultCanceled = "canceled"
	CrawlResultRejected = "rejected"
)

// Source outcome labels for market_source_outcomes_total.
const (
	SourceOutcomeHit  = "hit"
	SourceOutcomeMiss = "miss"
)

var (
	crawlerPagesTotal          *prometheus.CounterVec
	crawlerCrawlsTotal         *prometheus.CounterVec
	marketSourceOutcomesTotal  *prometheus.CounterVec
	analyzerRunsTotal          *prometheus.CounterVec
	archiveWritesTotal         *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of pages visited by the crawler, labeled by status.",
			},
			[]string{"status"},
		)

		crawlerCrawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_crawls_total",
				Help: "Total number of crawl invocations, labeled by result.",
			},
			[]string{"result"},
		)

		marketSourceOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "market_source_outcomes_total",
				Help: "Market data source attempts, labeled by category, source and outcome.",
			},
			[]string{"category", "source", "outcome"},
		)

		analyzerRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analyzer_runs_total",
				Help: "Total number of site analyses, labeled by mode.",
			},
			[]string{"mode"},
		)

		archiveWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archive_writes_total",
				Help: "Archive side effects, labeled by kind and result.",
			},
			[]string{"kind", "result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rate_limit_delay_seconds",
				Help:    "Time spent waiting on the outbound rate limiter, labeled by host.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the crawler page counter for the given status.
func ObservePage(status string) {
	Init()
	crawlerPagesTotal.WithLabelValues(status).Inc()
}

// ObserveCrawl records the result of a whole crawl.
func ObserveCrawl(result string) {
	Init()
	crawlerCrawlsTotal.WithLabelValues(result).Inc()
}

// ObserveMarketSource records a single source attempt inside a fallback chain.
func ObserveMarketSource(category, source string, hit bool) {
	Init()
	outcome := SourceOutcomeMiss
	if hit {
		outcome = SourceOutcomeHit
	}
	marketSourceOutcomesTotal.WithLabelValues(category, source, outcome).Inc()
}

// ObserveAnalysis records which analysis path produced a result.
func ObserveAnalysis(mode string) {
	Init()
	analyzerRunsTotal.WithLabelValues(mode).Inc()
}

// ObserveArchive records a best-effort archive side effect.
func ObserveArchive(kind string, err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	archiveWritesTotal.WithLabelValues(kind, result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records how long an outbound request waited for a token.
func ObserveRateLimitDelay(host string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}
