package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/market-potential-crawler/internal/analyzer"
	"github.com/JakeFAU/market-potential-crawler/internal/market"
)

type analyzeOutput struct {
	Analysis analyzer.Analysis `json:"analysis"`
	Markets  []market.Report   `json:"markets,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	var withMarket bool
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Crawl a site, summarize the business, and optionally report on its markets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], withMarket)
		},
	}
	cmd.Flags().BoolVar(&withMarket, "market", false, "also build market reports for the detected locations")
	return cmd
}

func runAnalyze(cmd *cobra.Command, siteURL string, withMarket bool) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	pages, err := appInstance.Engine().Crawl(cmd.Context(), siteURL)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", siteURL, err)
	}
	result, err := appInstance.Analyzer().Analyze(cmd.Context(), siteURL, pages)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", siteURL, err)
	}
	out := analyzeOutput{Analysis: result}

	if withMarket {
		var locs []market.Location
		for _, l := range result.MarketLocations() {
			locs = append(locs, market.Location{Prefecture: l.Prefecture, City: l.City})
		}
		if len(locs) > 0 {
			reports, err := appInstance.Market().FetchMany(cmd.Context(), locs)
			if err != nil {
				return fmt.Errorf("market data: %w", err)
			}
			out.Markets = reports
		}
	}
	return printJSON(cmd.OutOrStdout(), out)
}
