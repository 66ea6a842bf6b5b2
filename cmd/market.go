package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/market-potential-crawler/internal/market"
	"github.com/JakeFAU/market-potential-crawler/internal/report"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

func newMarketCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "market <prefecture> <city> [<prefecture> <city>...]",
		Short: "Print market reports for one or more locations",
		Example: `  marketcrawler market 愛知県 天白区
  marketcrawler market 愛知県 天白区 愛知県 名古屋市
  marketcrawler market --format markdown 愛知県 天白区`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected prefecture and city pairs, got %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarket(cmd, args, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "output format: json or markdown")
	return cmd
}

func runMarket(cmd *cobra.Command, args []string, format string) error {
	if format != formatJSON && format != formatMarkdown {
		return fmt.Errorf("unknown format %q", format)
	}
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	locs := make([]market.Location, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		locs = append(locs, market.Location{Prefecture: args[i], City: args[i+1]})
	}
	reports, err := appInstance.Market().FetchMany(cmd.Context(), locs)
	if err != nil {
		return fmt.Errorf("market data: %w", err)
	}
	appInstance.Archive().ArchiveReports(cmd.Context(), reports)
	if format == formatMarkdown {
		return report.NewMarkdownWriter(cmd.OutOrStdout()).Write(reports)
	}
	return printJSON(cmd.OutOrStdout(), reports)
}
