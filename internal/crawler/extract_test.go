package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>  施工事例 | 山田工務店  </title>
  <style>.hidden { display: none; }</style>
  <script>var tracking = "ignore me";</script>
</head>
<body>
  <nav><a href="/nav-only">ナビゲーション</a></nav>
  <h1>愛知県名古屋市天白区の注文住宅</h1>
  <p>
    自然素材の家づくり
  </p>
  <p>OK</p>
  <a href="/works/">施工事例</a>
  <a href="works#latest">最新</a>
  <a href="https://example.com/company?tab=1">会社概要</a>
  <a href="/catalog.pdf">カタログ</a>
  <a href="https://other.example.org/">外部</a>
  <a href="mailto:info@example.com">メール</a>
  <footer>Copyright footer text <a href="/privacy">プライバシー</a></footer>
</body>
</html>`

func TestParsePage(t *testing.T) {
	page, err := ParsePage([]byte(samplePage), "https://example.com/", "example.com")
	require.NoError(t, err)

	require.Equal(t, "施工事例 | 山田工務店", page.Title)

	require.Contains(t, page.Text, "愛知県名古屋市天白区の注文住宅")
	require.Contains(t, page.Text, "自然素材の家づくり")
	require.NotContains(t, page.Text, "tracking")
	require.NotContains(t, page.Text, "display")
	require.NotContains(t, page.Text, "ナビゲーション")
	require.NotContains(t, page.Text, "Copyright")
	for _, line := range strings.Split(page.Text, "\n") {
		require.GreaterOrEqual(t, len([]rune(line)), minLineChars, "line %q", line)
		require.Equal(t, strings.TrimSpace(line), line)
	}

	require.Equal(t, []string{
		"https://example.com/works",
		"https://example.com/company?tab=1",
	}, page.Links)
}

func TestParsePageResolvesRelativeToPage(t *testing.T) {
	body := `<html><body><a href="detail">詳細</a><a href="../up">上へ</a></body></html>`
	page, err := ParsePage([]byte(body), "https://example.com/works/list", "example.com")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/works/detail",
		"https://example.com/up",
	}, page.Links)
}

func TestParsePageWithoutTitle(t *testing.T) {
	page, err := ParsePage([]byte(`<html><body><p>本文のみのページ</p></body></html>`), "https://example.com/", "example.com")
	require.NoError(t, err)
	require.Empty(t, page.Title)
	require.Equal(t, "本文のみのページ", page.Text)
	require.Empty(t, page.Links)
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "名古屋", truncateRunes("名古屋市天白区", 3))
	require.Equal(t, "abc", truncateRunes("abc", 10))
	require.Equal(t, "abc", truncateRunes("abc", 0))
	require.Equal(t, "", truncateRunes("", 5))
}
