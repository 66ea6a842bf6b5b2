package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"drops fragment", "https://example.com/about#team", "https://example.com/about"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"bare host untouched", "https://example.com", "https://example.com"},
		{"strips trailing slash", "https://example.com/about/", "https://example.com/about"},
		{"strips repeated slashes", "https://example.com/about//", "https://example.com/about"},
		{"fragment then slash", "https://example.com/news/#top", "https://example.com/news"},
		{"keeps query", "https://example.com/list?page=2", "https://example.com/list?page=2"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/",
		"https://example.com/a/b/",
		"https://example.com/a#frag",
		"https://example.com/a/?q=1#x",
		"not a url/",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestIsNonHTMLResource(t *testing.T) {
	require.True(t, IsNonHTMLResource("https://example.com/brochure.pdf"))
	require.True(t, IsNonHTMLResource("https://example.com/IMG/Photo.JPG"))
	require.True(t, IsNonHTMLResource("https://example.com/app.js?v=3"))
	require.True(t, IsNonHTMLResource("https://example.com/fonts/a.woff2"))
	require.False(t, IsNonHTMLResource("https://example.com/company"))
	require.False(t, IsNonHTMLResource("https://example.com/index.html"))
	require.False(t, IsNonHTMLResource("https://example.com/download?file=a.pdf"))
}

func TestIsHTMLContentType(t *testing.T) {
	require.True(t, isHTMLContentType("text/html; charset=utf-8"))
	require.True(t, isHTMLContentType("TEXT/HTML"))
	require.False(t, isHTMLContentType("application/json"))
	require.False(t, isHTMLContentType(""))
}
