package analyzer

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
)

// Unknown marks a field the basic analysis could not determine.
const Unknown = "不明"

const (
	basicProvenance  = "AI analysis unavailable; derived from page titles and keyword matching"
	basicNeedsAPIKey = "AI分析にはAPIキーが必要です"
)

var (
	prefecturePattern = regexp.MustCompile(`北海道|青森県|岩手県|宮城県|秋田県|山形県|福島県|茨城県|栃木県|群馬県|` +
		`埼玉県|千葉県|東京都|神奈川県|新潟県|富山県|石川県|福井県|山梨県|長野県|岐阜県|静岡県|愛知県|三重県|` +
		`滋賀県|京都府|大阪府|兵庫県|奈良県|和歌山県|鳥取県|島根県|岡山県|広島県|山口県|徳島県|香川県|愛媛県|` +
		`高知県|福岡県|佐賀県|長崎県|熊本県|大分県|宮崎県|鹿児島県|沖縄県`)
	cityPattern = regexp.MustCompile(`.{1,4}[市区町村]`)

	realEstateKeywords = []string{
		"工務店", "不動産", "住宅", "ハウス", "建築", "建設",
		"注文住宅", "新築", "リフォーム", "リノベーション",
		"マンション", "賃貸", "分譲", "土地", "仲介",
	}
)

// BasicAnalysis derives what it can from the pages without a model: the
// company name from the first page title, the location from the first
// prefecture and following municipality named in the text, and the real-estate
// flag from keyword matches.
func BasicAnalysis(siteURL string, pages []crawler.PageRecord, combined string) Analysis {
	pref, city := DetectLocation(combined)
	isRealEstate := IsRealEstate(combined)

	businessType := "一般企業"
	if isRealEstate {
		businessType = "建築・不動産関連"
	}

	return Analysis{
		Company: Company{
			Name:           CompanyName(siteURL, pages),
			Address:        pref + " " + city,
			BusinessType:   businessType,
			MainServices:   "Webサイトから自動検出（AI分析には OPENAI_API_KEY が必要です）",
			IsRealEstate:   isRealEstate,
			Strengths:      basicNeedsAPIKey,
			Weaknesses:     basicNeedsAPIKey,
			Keywords:       matchedKeywords(combined),
			TargetAudience: Unknown,
		},
		Locations:  []Location{{Prefecture: pref, City: city, Type: "本社"}},
		Location:   Location{Prefecture: pref, City: city},
		Mode:       ModeBasic,
		Provenance: basicProvenance,
	}
}

// DetectLocation returns the first prefecture in text and the first
// municipality named after it. Missing parts are Unknown.
func DetectLocation(text string) (string, string) {
	pref, city := Unknown, Unknown
	rest := text
	if loc := prefecturePattern.FindStringIndex(text); loc != nil {
		pref = text[loc[0]:loc[1]]
		rest = text[loc[1]:]
	}
	if m := cityPattern.FindString(rest); m != "" {
		city = m
	}
	return pref, city
}

// IsRealEstate reports whether text mentions any construction or real-estate keyword.
func IsRealEstate(text string) bool {
	for _, kw := range realEstateKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func matchedKeywords(text string) []string {
	out := []string{}
	for _, kw := range realEstateKeywords {
		if strings.Contains(text, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// CompanyName guesses the business name. The first title longer than two
// characters is split on "|", then "-", then "–", and the last segment wins;
// without a usable title the first label of the host is used.
func CompanyName(siteURL string, pages []crawler.PageRecord) string {
	for _, p := range pages {
		title := strings.TrimSpace(p.Title)
		if utf8.RuneCountInString(title) <= 2 {
			continue
		}
		for _, sep := range []string{"|", "-", "–"} {
			if parts := strings.Split(title, sep); len(parts) > 1 {
				return strings.TrimSpace(parts[len(parts)-1])
			}
		}
		return title
	}
	return domainLabel(siteURL)
}

func domainLabel(siteURL string) string {
	host := siteURL
	if u, err := url.Parse(siteURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.TrimPrefix(host, "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return Unknown
	}
	return label
}
