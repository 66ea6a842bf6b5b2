// Package estat is a client for the e-Stat government statistics API.
package estat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the e-Stat REST 3.0 JSON endpoint.
const DefaultBaseURL = "https://api.e-stat.go.jp/rest/3.0/app/json"

// Result status codes. StatusNoData still means the call succeeded.
const (
	StatusOK     = 0
	StatusNoData = 1
)

// Config controls the client.
type Config struct {
	AppID      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls getStatsData. The zero AppID disables the client.
type Client struct {
	appID   string
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
	return &Client{appID: cfg.AppID, baseURL: base, http: httpClient}
}

// Enabled reports whether an application ID is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.appID != ""
}

// Value is one cell of a statistics table.
type Value struct {
	Cat01 string `json:"@cat01"`
	Area  string `json:"@area"`
	Time  string `json:"@time"`
	Unit  string `json:"@unit"`
	Raw   string `json:"$"`
}

// Float parses the cell. Suppressed cells such as "-" or "…" are not numeric.
func (v Value) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v.Raw), ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

type statsResponse struct {
	GetStatsData struct {
		Result struct {
			Status   int    `json:"STATUS"`
			ErrorMsg string `json:"ERROR_MSG"`
		} `json:"RESULT"`
		StatisticalData struct {
			DataInf struct {
				Value json.RawMessage `json:"VALUE"`
			} `json:"DATA_INF"`
		} `json:"STATISTICAL_DATA"`
	} `json:"GET_STATS_DATA"`
}

// StatsData fetches the cells of a table restricted to one area code.
func (c *Client) StatsData(ctx context.Context, statsDataID, areaCode string) ([]Value, error) {
	q := url.Values{
		"appId":       {c.appID},
		"statsDataId": {statsDataID},
		"cdArea":      {areaCode},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getStatsData?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("estat: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("estat: request %s: %w", statsDataID, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("estat: %s returned status %d", statsDataID, resp.StatusCode)
	}
	var body statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("estat: decode %s: %w", statsDataID, err)
	}
	result := body.GetStatsData.Result
	switch result.Status {
	case StatusOK:
	case StatusNoData:
		return nil, nil
	default:
		return nil, fmt.Errorf("estat: %s status %d: %s", statsDataID, result.Status, result.ErrorMsg)
	}
	return decodeValues(body.GetStatsData.StatisticalData.DataInf.Value)
}

// decodeValues accepts VALUE as either an array or a single object, which is
// how the API encodes one-cell results.
func decodeValues(raw json.RawMessage) ([]Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '{' {
		var one Value
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("estat: decode value: %w", err)
		}
		return []Value{one}, nil
	}
	var many []Value
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("estat: decode values: %w", err)
	}
	return many, nil
}

// Latest returns the numeric cell with the greatest time code for cat01.
func Latest(values []Value, cat01 string) (Value, float64, bool) {
	series := Series(values, cat01)
	if len(series) == 0 {
		return Value{}, 0, false
	}
	last := series[len(series)-1]
	f, _ := last.Float()
	return last, f, true
}

// Series returns the numeric cells for cat01 ordered by time code.
func Series(values []Value, cat01 string) []Value {
	var out []Value
	for _, v := range values {
		if v.Cat01 != cat01 {
			continue
		}
		if _, ok := v.Float(); !ok {
			continue
		}
		out = append(out, v)
	}
	// Time codes are fixed-width ("2023000000"), so string order is time order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Year extracts the calendar year from a time code.
func Year(timeCode string) string {
	if len(timeCode) < 4 {
		return timeCode
	}
	return timeCode[:4]
}
