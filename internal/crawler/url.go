package crawler

import (
	"net/url"
	"strings"
)

var nonHTMLExtensions = []string{
	// images
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".bmp", ".ico",
	// documents
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	// archives
	".zip", ".gz", ".tar", ".rar", ".7z",
	// fonts
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	// stylesheets and scripts
	".css", ".js",
	// audio and video
	".mp3", ".mp4", ".wav", ".mov", ".avi", ".webm",
}

// Normalize canonicalizes a URL for deduplication. It drops the fragment and,
// unless the URL is a bare domain root, strips trailing slashes. Normalize is
// idempotent.
func Normalize(rawURL string) string {
	canonical := rawURL
	if i := strings.IndexByte(canonical, '#'); i >= 0 {
		canonical = canonical[:i]
	}
	// More than three separators means there is a path segment after "scheme://host/".
	if strings.HasSuffix(canonical, "/") && strings.Count(canonical, "/") > 3 {
		canonical = strings.TrimRight(canonical, "/")
	}
	return canonical
}

// IsNonHTMLResource reports whether the URL path ends with a known non-HTML
// file extension. The query string is ignored.
func IsNonHTMLResource(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	p = strings.ToLower(p)
	for _, ext := range nonHTMLExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

func isHTMLContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
