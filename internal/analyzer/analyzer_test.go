package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

var samplePages = []crawler.PageRecord{
	{URL: "https://www.yamada-koumuten.jp/", Title: "注文住宅の山田工務店 | 山田工務店", Text: "愛知県名古屋市天白区で自然素材の注文住宅を建てています。", Depth: 0},
	{URL: "https://www.yamada-koumuten.jp/works", Title: "施工事例", Text: "リフォームとリノベーションの事例", Depth: 1},
}

const modelJSON = `{
  "company": {
    "name": "山田工務店",
    "address": "愛知県 名古屋市天白区",
    "business_type": "工務店",
    "main_services": "注文住宅",
    "is_real_estate": true,
    "strengths": ["自然素材", "地域密着"],
    "weaknesses": "Web集客",
    "keywords": ["注文住宅", "自然素材"],
    "target_audience": "30代の子育て世帯"
  },
  "locations": [{"prefecture": "愛知県", "city": "天白区", "type": "本社"}],
  "location": {"prefecture": "愛知県", "city": "天白区"}
}`

func TestAnalyzeWithModel(t *testing.T) {
	m := &mockCompleter{}
	m.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []Message) bool {
		return len(msgs) == 2 && msgs[0].Role == "system" &&
			strings.Contains(msgs[1].Content, "https://www.yamada-koumuten.jp/") &&
			strings.Contains(msgs[1].Content, "=== 施工事例 ===")
	})).Return("```json\n"+modelJSON+"\n```", nil)

	a := New(m, 0, zap.NewNop())
	got, err := a.Analyze(context.Background(), "https://www.yamada-koumuten.jp/", samplePages)
	require.NoError(t, err)
	m.AssertExpectations(t)

	require.Equal(t, ModeAI, got.Mode)
	require.Empty(t, got.Provenance)
	require.Equal(t, "山田工務店", got.Company.Name)
	require.Equal(t, Text("自然素材、地域密着"), got.Company.Strengths)
	require.Equal(t, Text("Web集客"), got.Company.Weaknesses)
	require.Equal(t, Location{Prefecture: "愛知県", City: "天白区"}, got.Location)
}

func TestAnalyzeFallsBackOnModelError(t *testing.T) {
	m := &mockCompleter{}
	m.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	got, err := New(m, 0, zap.NewNop()).Analyze(context.Background(), "https://www.yamada-koumuten.jp/", samplePages)
	require.NoError(t, err)
	require.Equal(t, ModeBasic, got.Mode)
	require.NotEmpty(t, got.Provenance)
	require.Equal(t, "山田工務店", got.Company.Name)
}

func TestAnalyzeFallsBackOnInvalidJSON(t *testing.T) {
	m := &mockCompleter{}
	m.On("Complete", mock.Anything, mock.Anything).Return("申し訳ありませんが、分析できません。", nil)

	got, err := New(m, 0, zap.NewNop()).Analyze(context.Background(), "https://www.yamada-koumuten.jp/", samplePages)
	require.NoError(t, err)
	require.Equal(t, ModeBasic, got.Mode)
}

func TestAnalyzeWithoutCompleter(t *testing.T) {
	got, err := New(nil, 0, nil).Analyze(context.Background(), "https://www.yamada-koumuten.jp/", samplePages)
	require.NoError(t, err)
	require.Equal(t, ModeBasic, got.Mode)
	require.Equal(t, "愛知県", got.Location.Prefecture)
	require.Equal(t, "名古屋市", got.Location.City)
	require.True(t, got.Company.IsRealEstate)
	require.Equal(t, "建築・不動産関連", got.Company.BusinessType)
	require.Contains(t, got.Company.Keywords, "注文住宅")
}

func TestAnalyzeRequiresPages(t *testing.T) {
	_, err := New(nil, 0, nil).Analyze(context.Background(), "https://example.com/", nil)
	require.ErrorIs(t, err, ErrNoPages)
}

func TestChatClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Len(t, req.Messages, 1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	c := NewChatClient(ChatConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "gpt-test"})
	got, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, got)
}

func TestChatClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer bad" {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewChatClient(ChatConfig{APIKey: "bad", BaseURL: srv.URL}).Complete(context.Background(), nil)
	require.ErrorContains(t, err, "invalid api key")

	_, err = NewChatClient(ChatConfig{APIKey: "good", BaseURL: srv.URL}).Complete(context.Background(), nil)
	require.ErrorContains(t, err, "no content")
}

func TestStripCodeFence(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	require.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}

func TestMarketLocations(t *testing.T) {
	a := Analysis{
		Location: Location{Prefecture: "愛知県", City: "天白区"},
		Locations: []Location{
			{Prefecture: "愛知県", City: "天白区", Type: "本社"},
			{Prefecture: "愛知県", City: "日進市", Type: "支店"},
			{Prefecture: Unknown, City: Unknown},
		},
	}
	require.Equal(t, []Location{
		{Prefecture: "愛知県", City: "天白区"},
		{Prefecture: "愛知県", City: "日進市"},
	}, a.MarketLocations())
}
