// Package resas is a client for the RESAS regional economy API.
package resas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public RESAS endpoint.
const DefaultBaseURL = "https://opendata.resas-portal.go.jp"

// ErrCityNotFound is returned by FindCity when no municipality matches.
var ErrCityNotFound = errors.New("resas: city not found")

// Config controls the client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls RESAS endpoints. The zero API key disables the client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New constructs a Client.
func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, http: httpClient}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// City is one municipality entry.
type City struct {
	PrefCode    int    `json:"prefCode"`
	CityCode    string `json:"cityCode"`
	CityName    string `json:"cityName"`
	BigCityFlag string `json:"bigCityFlag"`
}

// YearValue is one data point of a population series.
type YearValue struct {
	Year  int `json:"year"`
	Value int `json:"value"`
}

// Series is a labeled population series such as 総人口.
type Series struct {
	Label string      `json:"label"`
	Data  []YearValue `json:"data"`
}

// Composition is the population composition for a municipality.
type Composition struct {
	// BoundaryYear is the last observed year; later points are projections.
	BoundaryYear int      `json:"boundaryYear"`
	Data         []Series `json:"data"`
}

// Latest returns the last observed value of the labeled series. Projected
// points after BoundaryYear are ignored when a boundary is given.
func (c Composition) Latest(label string) (YearValue, bool) {
	for _, s := range c.Data {
		if s.Label != label {
			continue
		}
		var (
			best  YearValue
			found bool
		)
		for _, p := range s.Data {
			if c.BoundaryYear > 0 && p.Year > c.BoundaryYear {
				continue
			}
			if !found || p.Year >= best.Year {
				best, found = p, true
			}
		}
		return best, found
	}
	return YearValue{}, false
}

type envelope struct {
	Message    *string         `json:"message"`
	StatusCode json.RawMessage `json:"statusCode"`
	Result     json.RawMessage `json:"result"`
}

// Cities lists the municipalities of a prefecture.
func (c *Client) Cities(ctx context.Context, prefCode int) ([]City, error) {
	q := url.Values{"prefCode": {strconv.Itoa(prefCode)}}
	var cities []City
	if err := c.get(ctx, "/api/v1/cities", q, &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

// PopulationComposition fetches the per-year population composition.
func (c *Client) PopulationComposition(ctx context.Context, prefCode int, cityCode string) (Composition, error) {
	q := url.Values{
		"prefCode": {strconv.Itoa(prefCode)},
		"cityCode": {cityCode},
	}
	var comp Composition
	if err := c.get(ctx, "/api/v1/population/composition/perYear", q, &comp); err != nil {
		return Composition{}, err
	}
	return comp, nil
}

// FindCity returns the first city whose name contains cleaned.
func FindCity(cities []City, cleaned string) (City, error) {
	if cleaned == "" {
		return City{}, ErrCityNotFound
	}
	for _, city := range cities {
		if strings.Contains(city.CityName, cleaned) {
			return city, nil
		}
	}
	return City{}, fmt.Errorf("%w: %q", ErrCityNotFound, cleaned)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("resas: build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("resas: request %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("resas: %s returned status %d", path, resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("resas: decode %s: %w", path, err)
	}
	// Errors are reported in the body with HTTP 200.
	if len(env.Result) == 0 || string(env.Result) == "null" {
		msg := "empty result"
		if env.Message != nil {
			msg = *env.Message
		}
		return fmt.Errorf("resas: %s: %s", path, msg)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("resas: decode %s result: %w", path, err)
	}
	return nil
}
