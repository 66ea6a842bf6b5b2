package analyzer

import (
	"strings"

	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
)

// DefaultMaxChars bounds the combined text sent for analysis.
const DefaultMaxChars = 15000

// CombinePages renders pages as "=== title ===" headed blocks separated by a
// blank line, truncated to maxChars characters.
func CombinePages(pages []crawler.PageRecord, maxChars int) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, "=== "+p.Title+" ===\n"+p.Text)
	}
	combined := strings.Join(parts, "\n\n")
	if maxChars <= 0 {
		return combined
	}
	count := 0
	for i := range combined {
		if count == maxChars {
			return combined[:i]
		}
		count++
	}
	return combined
}
