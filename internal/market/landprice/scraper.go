// Package landprice scrapes published land prices from tochidai.info.
package landprice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBaseURL is the land-price site root.
const DefaultBaseURL = "https://tochidai.info"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36"

var (
	// ErrCityNotFound means the prefecture index had no link for the city.
	ErrCityNotFound = errors.New("landprice: city not listed")
	// ErrNoPrices means the city page carried no recognizable figures.
	ErrNoPrices = errors.New("landprice: no prices on page")
)

var (
	sqmPattern    = regexp.MustCompile(`(\d[\d,]+)円/(?:m²|㎡|m2)`)
	tsuboPattern  = regexp.MustCompile(`(\d[\d,]+)円/坪`)
	changePattern = regexp.MustCompile(`([+-]\d+\.?\d*%)`)
)

// Config controls the scraper.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Scraper reads the prefecture index and city pages.
type Scraper struct {
	baseURL   *url.URL
	userAgent string
	http      *http.Client
}

// New constructs a Scraper.
func New(cfg Config) (*Scraper, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("landprice: parse base url: %w", err)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Scraper{baseURL: base, userAgent: ua, http: httpClient}, nil
}

// Prices are the figures found on a city page, in yen.
type Prices struct {
	ResidentialSqm   *int
	ResidentialTsubo *int
	YoYChange        *string
	PageURL          string
}

// Lookup finds the city under the prefecture slug and parses its page.
// cleanedCity is matched as a substring of link text.
func (s *Scraper) Lookup(ctx context.Context, slug, cleanedCity string) (Prices, error) {
	indexURL := s.baseURL.ResolveReference(&url.URL{Path: slug + "/"})
	index, err := s.document(ctx, indexURL.String())
	if err != nil {
		return Prices{}, err
	}

	cityURL, err := findCityLink(index, indexURL, cleanedCity)
	if err != nil {
		return Prices{}, err
	}
	page, err := s.document(ctx, cityURL)
	if err != nil {
		return Prices{}, err
	}
	prices := ParsePrices(page.Text())
	if prices.ResidentialSqm == nil && prices.ResidentialTsubo == nil {
		return Prices{}, fmt.Errorf("%w: %s", ErrNoPrices, cityURL)
	}
	prices.PageURL = cityURL
	return prices, nil
}

func findCityLink(doc *goquery.Document, base *url.URL, cleanedCity string) (string, error) {
	if cleanedCity == "" {
		return "", ErrCityNotFound
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), cleanedCity) {
			return true
		}
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil || href == "" {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})
	if found == "" {
		return "", fmt.Errorf("%w: %q", ErrCityNotFound, cleanedCity)
	}
	return found, nil
}

// ParsePrices extracts the first per-m², per-坪 and percentage-change figures
// from page text.
func ParsePrices(text string) Prices {
	var p Prices
	if m := sqmPattern.FindStringSubmatch(text); m != nil {
		p.ResidentialSqm = parseYen(m[1])
	}
	if m := tsuboPattern.FindStringSubmatch(text); m != nil {
		p.ResidentialTsubo = parseYen(m[1])
	}
	if m := changePattern.FindStringSubmatch(text); m != nil {
		change := m[1]
		p.YoYChange = &change
	}
	return p
}

func parseYen(raw string) *int {
	v, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return nil
	}
	return &v
}

func (s *Scraper) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("landprice: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("landprice: get %s: %w", pageURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("landprice: %s returned status %d", pageURL, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("landprice: parse %s: %w", pageURL, err)
	}
	return doc, nil
}
