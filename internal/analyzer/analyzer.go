package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
	"github.com/JakeFAU/market-potential-crawler/internal/metrics"
)

const systemPrompt = "あなたは日本の企業・不動産市場に精通した経営コンサルタントです。" +
	"Webサイトの内容から企業の事業内容を正確に分析します。" +
	"回答は必ず有効なJSON形式のみで返してください。"

const userPromptTemplate = `以下は企業Webサイト（%s）からクロールしたテキストです。
この企業について詳細に分析して、以下のJSON形式で回答してください。

**重要**: 必ず有効なJSONのみを返してください。マークダウンや説明文は不要です。

{
  "company": {
    "name": "企業名",
    "address": "所在地（都道府県 市区町村まで）",
    "business_type": "業種（例: 工務店、不動産仲介、ハウスメーカー等）",
    "main_services": "主力サービスの概要",
    "is_real_estate": true/false,
    "strengths": "この企業の強み・特徴（3-5つ）",
    "weaknesses": "改善の余地がある点（3つ程度）",
    "keywords": ["関連キーワード1", "関連キーワード2", "..."],
    "target_audience": "ターゲット顧客層"
  },
  "locations": [
    {"prefecture": "都道府県", "city": "市区町村", "type": "本社/支店/営業所"}
  ],
  "location": {"prefecture": "メイン所在地の都道府県", "city": "メイン所在地の市区町村"}
}

--- 企業サイトのテキスト ---
%s
`

// Analyzer turns crawled pages into an Analysis.
type Analyzer struct {
	completer Completer
	maxChars  int
	logger    *zap.Logger
}

// New constructs an Analyzer. A nil completer always selects BasicAnalysis.
func New(completer Completer, maxChars int, logger *zap.Logger) *Analyzer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{completer: completer, maxChars: maxChars, logger: logger}
}

// Analyze summarizes pages crawled from siteURL. Model failures are not
// returned; they degrade to BasicAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, siteURL string, pages []crawler.PageRecord) (Analysis, error) {
	if len(pages) == 0 {
		return Analysis{}, ErrNoPages
	}
	combined := CombinePages(pages, a.maxChars)

	if a.completer == nil {
		metrics.ObserveAnalysis(ModeBasic)
		return BasicAnalysis(siteURL, pages, combined), nil
	}

	analysis, err := a.analyzeWithModel(ctx, siteURL, combined)
	if err != nil {
		a.logger.Warn("model analysis failed, using basic analysis",
			zap.String("url", siteURL),
			zap.Error(err),
		)
		metrics.ObserveAnalysis(ModeBasic)
		return BasicAnalysis(siteURL, pages, combined), nil
	}
	metrics.ObserveAnalysis(ModeAI)
	return analysis, nil
}

func (a *Analyzer) analyzeWithModel(ctx context.Context, siteURL, combined string) (Analysis, error) {
	content, err := a.completer.Complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, siteURL, combined)},
	})
	if err != nil {
		return Analysis{}, err
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("decode model json: %w", err)
	}
	if analysis.Location.Prefecture == "" && len(analysis.Locations) > 0 {
		analysis.Location = Location{
			Prefecture: analysis.Locations[0].Prefecture,
			City:       analysis.Locations[0].City,
		}
	}
	analysis.Mode = ModeAI
	analysis.Provenance = ""
	return analysis, nil
}

// MarketLocations returns the distinct locations named by an analysis, main
// location first, skipping entries with an unknown prefecture.
func (a Analysis) MarketLocations() []Location {
	seen := make(map[[2]string]struct{})
	var out []Location
	add := func(l Location) {
		if l.Prefecture == "" || l.Prefecture == Unknown {
			return
		}
		key := [2]string{l.Prefecture, l.City}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, Location{Prefecture: l.Prefecture, City: l.City})
	}
	add(a.Location)
	for _, l := range a.Locations {
		add(l)
	}
	return out
}
