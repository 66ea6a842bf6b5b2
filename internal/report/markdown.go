// Package report renders market reports for human readers.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/JakeFAU/market-potential-crawler/internal/market"
)

const notAvailable = "N/A"

// MarkdownWriter writes market reports as GitHub-flavored Markdown.
type MarkdownWriter struct {
	output  io.Writer
	printer *message.Printer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		output:  output,
		printer: message.NewPrinter(language.Japanese),
	}
}

// Write renders every report under a single heading.
func (w *MarkdownWriter) Write(reports []market.Report) error {
	md := markdown.NewMarkdown(w.output)
	md.H1("市場レポート")
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("対象エリアがありません。")
		return md.Build()
	}
	for _, r := range reports {
		w.writeReport(md, r)
	}
	return md.Build()
}

func (w *MarkdownWriter) writeReport(md *markdown.Markdown, r market.Report) {
	md.H2(r.AreaName)
	md.PlainText("")

	md.H3("統計データ")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"項目", "値", "出典"},
		Rows: [][]string{
			{"総人口", w.count(r.Population.TotalPopulation, "人"), r.Population.Source},
			{"世帯数", w.count(r.Population.Households, "世帯"), r.Population.Source},
			{"30〜45歳比率", percent(r.Population.Age3045Pct), r.Population.Source},
			{"高齢化率", percent(r.Population.ElderlyPct), r.Population.Source},
			{"持家着工数", w.count(r.Construction.OwnerOccupied, "戸"), r.Construction.Source},
			{"持家率", percent(r.Housing.OwnershipRate), r.Housing.Source},
			{"空き家率", percent(r.Housing.VacancyRate), r.Housing.Source},
			{"住宅地坪単価", w.count(r.LandPrice.ResidentialTsubo, "円"), r.LandPrice.Source},
			{"新築平均価格", w.count(r.HomePrices.AvgPrice, "万円"), r.HomePrices.Source},
			{"競合社数", w.count(r.Competition.TotalCompanies, "社"), r.Competition.Source},
		},
	})
	md.PlainText("")

	p := r.Potential
	md.H3("市場ポテンシャル")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"指標", "値"},
		Rows: [][]string{
			{"ターゲット世帯", w.count(p.TargetHouseholds, "世帯")},
			{"賃貸世帯", w.count(p.RentalHouseholds, "世帯")},
			{"年間持家転換", w.count(p.AnnualConverts, "世帯")},
			{"1社あたり", perCompany(p.PerCompany)},
			{"評価", orNA(p.Level)},
		},
	})
	md.PlainText("")
	if p.Insight != "" {
		md.Note(p.Insight)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) count(v *int, unit string) string {
	if v == nil {
		return notAvailable
	}
	return w.printer.Sprintf("%d", *v) + unit
}

func percent(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "%"
}

func perCompany(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.1f世帯", *v)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
