package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
)

type crawlOutput struct {
	Pages      []crawler.PageRecord `json:"pages"`
	TotalPages int                  `json:"total_pages"`
	RootURL    string               `json:"root_url"`
}

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site and print its pages as JSON",
		Long: `Walks same-host links depth-first from the start URL, bounded by
crawler.max_pages and crawler.max_depth, and prints every HTML page's
title and visible text.`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	rootURL := args[0]
	pages, err := appInstance.Engine().Crawl(cmd.Context(), rootURL)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", rootURL, err)
	}
	if pages == nil {
		pages = []crawler.PageRecord{}
	}
	if _, err := appInstance.Archive().ArchiveCrawl(cmd.Context(), rootURL, pages); err != nil {
		appInstance.Logger().Warn("crawl archive failed", zap.Error(err))
	}
	return printJSON(cmd.OutOrStdout(), crawlOutput{Pages: pages, TotalPages: len(pages), RootURL: rootURL})
}
