package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/JakeFAU/market-potential-crawler/internal/market"
)

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes area sections", func(t *testing.T) {
		t.Parallel()

		total := 123456
		elderly := 22.5
		r := market.Report{
			AreaName:   "愛知県 天白区",
			Prefecture: "愛知県",
			City:       "天白区",
			Population: market.Population{
				TotalPopulation: &total,
				ElderlyPct:      &elderly,
				Source:          "RESAS API",
			},
			Potential: market.Potential{Level: "高", Insight: "需要が見込めます"},
		}

		var buf bytes.Buffer
		if err := NewMarkdownWriter(&buf).Write([]market.Report{r}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# 市場レポート",
			"## 愛知県 天白区",
			"123,456人",
			"22.5%",
			"RESAS API",
			"需要が見込めます",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if !strings.Contains(output, notAvailable) {
			t.Error("expected missing values to render as N/A")
		}
	})

	t.Run("writes placeholder without reports", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := NewMarkdownWriter(&buf).Write(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "対象エリアがありません") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})
}
