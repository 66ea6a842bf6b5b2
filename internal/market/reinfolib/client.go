// Package reinfolib is a client for the MLIT real-estate information library
// transaction price API.
package reinfolib

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://www.reinfolib.mlit.go.jp/ex-api/external"

// TypeLandAndBuilding is the transaction type for a house sold with its lot.
const TypeLandAndBuilding = "宅地(土地と建物)"

// Config controls the client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the XIT001 transaction endpoint.
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
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, http: httpClient}
}

// Enabled reports whether a subscription key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Transaction is one reported sale.
type Transaction struct {
	Type         string `json:"Type"`
	Municipality string `json:"Municipality"`
	DistrictName string `json:"DistrictName"`
	TradePrice   string `json:"TradePrice"`
	BuildingYear string `json:"BuildingYear"`
	Period       string `json:"Period"`
}

type transactionsResponse struct {
	Status string        `json:"status"`
	Data   []Transaction `json:"data"`
}

// Transactions lists the sales reported for a municipality in a year.
func (c *Client) Transactions(ctx context.Context, year int, prefCode, cityCode string) ([]Transaction, error) {
	q := url.Values{
		"year": {strconv.Itoa(year)},
		"area": {prefCode},
	}
	if cityCode != "" {
		q.Set("city", cityCode)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/XIT001?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("reinfolib: build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reinfolib: request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reinfolib: status %d", resp.StatusCode)
	}
	var body transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("reinfolib: decode: %w", err)
	}
	if body.Status != "" && body.Status != "OK" {
		return nil, fmt.Errorf("reinfolib: api status %q", body.Status)
	}
	return body.Data, nil
}

// Summary aggregates land-and-building sale prices. Amounts are in 万円.
type Summary struct {
	Count          int
	AvgPrice       int
	MinPrice       int
	MaxPrice       int
	RequiredIncome int
}

// PriceRange renders the range the way listings print it, e.g. "3,000万〜7,200万円".
func (s Summary) PriceRange() string {
	return groupDigits(s.MinPrice) + "万〜" + groupDigits(s.MaxPrice) + "万円"
}

// Summarize averages the land-and-building transactions. The required annual
// income assumes a loan of five times income.
func Summarize(txs []Transaction) (Summary, bool) {
	var (
		sum    float64
		count  int
		lo, hi float64
	)
	for _, tx := range txs {
		if tx.Type != TypeLandAndBuilding {
			continue
		}
		yen, err := strconv.ParseFloat(strings.ReplaceAll(tx.TradePrice, ",", ""), 64)
		if err != nil || yen <= 0 {
			continue
		}
		if count == 0 || yen < lo {
			lo = yen
		}
		if count == 0 || yen > hi {
			hi = yen
		}
		sum += yen
		count++
	}
	if count == 0 {
		return Summary{}, false
	}
	avg := toMan(sum / float64(count))
	return Summary{
		Count:          count,
		AvgPrice:       avg,
		MinPrice:       toMan(lo),
		MaxPrice:       toMan(hi),
		RequiredIncome: int(math.RoundToEven(float64(avg) / 5)),
	}, true
}

func toMan(yen float64) int {
	return int(math.RoundToEven(yen / 10000))
}

func groupDigits(n int) string {
	return message.NewPrinter(language.Japanese).Sprintf("%d", n)
}
