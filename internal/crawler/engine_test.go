package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/metrics"
)

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]FetchResponse
	errs    map[string]error
	fetched []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string]FetchResponse),
		errs:  make(map[string]error),
	}
}

func (f *fakeFetcher) html(u string, title string, links ...string) {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><p>%s の本文です</p>", title, title)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")
	f.pages[u] = FetchResponse{
		URL:        u,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(b.String()),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return FetchResponse{}, err
	}
	resp, ok := f.pages[rawURL]
	if !ok {
		return FetchResponse{
			URL:        rawURL,
			StatusCode: http.StatusNotFound,
			Headers:    http.Header{"Content-Type": []string{"text/html"}},
			Body:       []byte("<html><head><title>Not Found</title></head><body></body></html>"),
		}, nil
	}
	return resp, nil
}

type recordingPauser struct {
	calls int
	delay time.Duration
}

func (p *recordingPauser) Pause(_ context.Context, delay time.Duration) {
	p.calls++
	p.delay = delay
}

func newTestEngine(cfg Config, fetcher Fetcher) (*Engine, *recordingPauser) {
	engine := NewEngine(cfg, fetcher, zap.NewNop())
	pauser := &recordingPauser{}
	engine.pauser = pauser
	return engine, pauser
}

func urlsOf(pages []PageRecord) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.URL)
	}
	return out
}

func TestCrawlDepthFirstOrder(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home", "/a", "/b")
	f.html("https://example.com/a", "A", "/a/1", "/a/2")
	f.html("https://example.com/a/1", "A1")
	f.html("https://example.com/a/2", "A2")
	f.html("https://example.com/b", "B", "/b/1")
	f.html("https://example.com/b/1", "B1")

	engine, pauser := newTestEngine(Config{MaxPages: 20, MaxDepth: 2, Delay: 300 * time.Millisecond}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)

	require.Equal(t, []string{
		"https://example.com/",
		"https://example.com/a",
		"https://example.com/a/1",
		"https://example.com/a/2",
		"https://example.com/b",
		"https://example.com/b/1",
	}, urlsOf(pages))
	require.Equal(t, []int{0, 1, 2, 2, 1, 2}, []int{pages[0].Depth, pages[1].Depth, pages[2].Depth, pages[3].Depth, pages[4].Depth, pages[5].Depth})
	require.Equal(t, "Home", pages[0].Title)
	require.Contains(t, pages[0].Text, "Home の本文です")

	require.Equal(t, 5, pauser.calls, "every fetch but the first waits")
	require.Equal(t, 300*time.Millisecond, pauser.delay)
}

func TestCrawlRespectsPageBudget(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home", "/1", "/2", "/3", "/4", "/5")
	for i := 1; i <= 5; i++ {
		f.html(fmt.Sprintf("https://example.com/%d", i), fmt.Sprintf("P%d", i))
	}

	engine, _ := newTestEngine(Config{MaxPages: 3, MaxDepth: 2}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/",
		"https://example.com/1",
		"https://example.com/2",
	}, urlsOf(pages))
	require.Len(t, f.fetched, 3)
}

func TestCrawlRespectsDepthLimit(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home", "/a")
	f.html("https://example.com/a", "A", "/a/deep")
	f.html("https://example.com/a/deep", "Deep")

	engine, _ := newTestEngine(Config{MaxPages: 20, MaxDepth: 1}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/", "https://example.com/a"}, urlsOf(pages))
	require.NotContains(t, f.fetched, "https://example.com/a/deep")
}

func TestCrawlZeroDepthFetchesOnlyStart(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home", "/a")

	engine, pauser := newTestEngine(Config{MaxPages: 20, MaxDepth: 0}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Zero(t, pauser.calls)
}

func TestCrawlIgnoresNavAndFooterLinks(t *testing.T) {
	f := newFakeFetcher()
	f.pages["https://example.com/"] = FetchResponse{
		URL:        "https://example.com/",
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body: []byte(`<html><head><title>Home</title></head><body>
<nav><a href="/menu-only">メニュー</a></nav>
<p>トップページの本文です</p>
<footer><a href="/footer-only">会社情報</a></footer>
</body></html>`),
	}
	f.html("https://example.com/menu-only", "Menu")
	f.html("https://example.com/footer-only", "Footer")

	engine, _ := newTestEngine(DefaultConfig(), f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/"}, urlsOf(pages))
	require.Equal(t, []string{"https://example.com/"}, f.fetched)
}

func TestCrawlDeduplicatesCycles(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home", "/a", "/a/", "/a#section")
	f.html("https://example.com/a", "A", "/", "/b")
	f.html("https://example.com/b", "B", "/a")

	engine, _ := newTestEngine(Config{MaxPages: 20, MaxDepth: 5}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/",
		"https://example.com/a",
		"https://example.com/b",
	}, urlsOf(pages))
	require.Len(t, f.fetched, 3, "each canonical url is fetched at most once")
}

func TestCrawlStaysOnHostAndSkipsResources(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home", "/brochure.pdf", "/logo.png", "https://other.example.org/page", "/contact")
	f.html("https://example.com/contact", "Contact")

	engine, _ := newTestEngine(Config{MaxPages: 20, MaxDepth: 2}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/", "https://example.com/contact"}, urlsOf(pages))
	require.Equal(t, []string{"https://example.com/", "https://example.com/contact"}, f.fetched)
}

func TestCrawlSkipsNonHTMLContentType(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home", "/feed", "/about")
	f.pages["https://example.com/feed"] = FetchResponse{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"items":[]}`),
	}
	f.html("https://example.com/about", "About")

	engine, _ := newTestEngine(Config{MaxPages: 20, MaxDepth: 2}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/", "https://example.com/about"}, urlsOf(pages))
}

func TestCrawlContinuesAfterFetchError(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home", "/broken", "/ok")
	f.errs["https://example.com/broken"] = errors.New("connection reset")
	f.html("https://example.com/ok", "OK page")

	engine, _ := newTestEngine(Config{MaxPages: 20, MaxDepth: 2}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/", "https://example.com/ok"}, urlsOf(pages))
}

func TestCrawlUnreachableStartReturnsEmpty(t *testing.T) {
	f := newFakeFetcher()
	f.errs["https://down.example.com/"] = errors.New("dial tcp: no such host")

	engine, _ := newTestEngine(DefaultConfig(), f)
	pages, err := engine.Crawl(context.Background(), "https://down.example.com/")
	require.NoError(t, err)
	require.Empty(t, pages)
}

func TestCrawlTruncatesText(t *testing.T) {
	f := newFakeFetcher()
	long := strings.Repeat("長", 50)
	f.pages["https://example.com/"] = FetchResponse{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"text/html"}},
		Body:       []byte("<html><body><p>" + long + "</p></body></html>"),
	}

	engine, _ := newTestEngine(Config{MaxPages: 1, MaxDepth: 0, MaxTextChars: 10}, f)
	pages, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, strings.Repeat("長", 10), pages[0].Text)
}

func TestCrawlRejectsBadStartURL(t *testing.T) {
	engine, _ := newTestEngine(DefaultConfig(), newFakeFetcher())

	_, err := engine.Crawl(context.Background(), "   ")
	require.ErrorIs(t, err, ErrMissingStartURL)

	_, err = engine.Crawl(context.Background(), "example.com/no-scheme")
	require.ErrorIs(t, err, ErrInvalidStartURL)

	_, err = engine.Crawl(context.Background(), "ftp://example.com/")
	require.ErrorIs(t, err, ErrInvalidStartURL)
}

func TestCrawlHonorsCanceledContext(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine, _ := newTestEngine(DefaultConfig(), f)
	pages, err := engine.Crawl(ctx, "https://example.com/")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, pages)
	require.Empty(t, f.fetched)
}

func TestCrawlRecordsResultMetric(t *testing.T) {
	f := newFakeFetcher()
	f.html("https://example.com/", "Home")
	engine, _ := newTestEngine(DefaultConfig(), f)

	okBefore := crawlCount(t, metrics.CrawlResultOK)
	rejectedBefore := crawlCount(t, metrics.CrawlResultRejected)
	canceledBefore := crawlCount(t, metrics.CrawlResultCanceled)

	_, err := engine.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	_, err = engine.Crawl(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingStartURL)
	_, err = engine.Crawl(context.Background(), "mailto:info@example.com")
	require.ErrorIs(t, err, ErrInvalidStartURL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Crawl(ctx, "https://example.com/")
	require.ErrorIs(t, err, context.Canceled)

	require.InDelta(t, okBefore+1, crawlCount(t, metrics.CrawlResultOK), 0.0001)
	require.InDelta(t, rejectedBefore+2, crawlCount(t, metrics.CrawlResultRejected), 0.0001)
	require.InDelta(t, canceledBefore+1, crawlCount(t, metrics.CrawlResultCanceled), 0.0001)
}

// crawlCount reads crawler_crawls_total{result} from the default registry.
func crawlCount(t *testing.T, result string) float64 {
	t.Helper()
	metrics.Init()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "crawler_crawls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestTimerPauseControllerHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pauser := &timerPauseController{}
	start := time.Now()
	pauser.Pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second, "pause should exit immediately when context is done")
}

func TestNewEngineAppliesDefaults(t *testing.T) {
	engine := NewEngine(Config{MaxDepth: -1, Delay: DefaultDelay}, newFakeFetcher(), nil)
	require.Equal(t, DefaultConfig(), engine.Config())
}
