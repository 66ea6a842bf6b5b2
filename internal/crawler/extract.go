package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// prunedSelector matches subtrees that never contribute visible page text.
const prunedSelector = "script, style, nav, footer, noscript, iframe"

// minLineChars is the shortest line kept by ExtractText; shorter lines are
// whitespace or decoration.
const minLineChars = 3

// ParsedPage is the extraction result for one HTML document.
type ParsedPage struct {
	Title string
	Text  string
	Links []string
}

// ParsePage parses body as HTML and extracts the title, visible text, and the
// canonical same-host links. Links are read after pruning, so anchors inside
// nav and footer are not followed. Relative links are resolved against pageURL.
func ParsePage(body []byte, pageURL string, baseHost string) (ParsedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ParsedPage{}, fmt.Errorf("parse html: %w", err)
	}
	title := ExtractTitle(doc)
	text := ExtractText(doc)
	links := ExtractLinks(doc, pageURL, baseHost)
	return ParsedPage{Title: title, Text: text, Links: links}, nil
}

// ExtractTitle returns the trimmed text of the first title element.
func ExtractTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// ExtractText removes non-content subtrees from doc and returns its visible
// text, one trimmed line per text run, skipping lines shorter than three
// characters. The document is modified in place.
func ExtractText(doc *goquery.Document) string {
	doc.Find(prunedSelector).Remove()

	var raw strings.Builder
	for _, n := range doc.Nodes {
		collectText(n, &raw)
	}

	lines := strings.FieldsFunc(raw.String(), isLineBreak)
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < minLineChars {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte('\n')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	default:
		return false
	}
}

// ExtractLinks returns the canonical form of every anchor href that resolves
// to baseHost, skipping non-HTML resources and duplicates. Order follows the
// document.
func ExtractLinks(doc *goquery.Document, pageURL string, baseHost string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != baseHost {
			return
		}
		canonical := Normalize(resolved.String())
		if IsNonHTMLResource(canonical) {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}
		links = append(links, canonical)
	})
	return links
}

// truncateRunes caps s at limit characters without splitting a rune.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
