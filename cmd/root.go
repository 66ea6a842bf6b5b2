// Package cmd defines and implements the CLI commands for the marketcrawler executable.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/app"
	"github.com/JakeFAU/market-potential-crawler/internal/config"
	"github.com/JakeFAU/market-potential-crawler/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// appHolder carries the App built for a subcommand back to executeRoot so it
// can be closed after the subcommand returns.
type appHolder struct {
	app *app.App
}

// newApp is the application factory. It's a variable so tests can adjust the
// configuration before services are wired.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// closeApp shuts the application's services down. Tests replace it to observe
// shutdown.
var closeApp = func(a *app.App) {
	a.Close()
}

type rootOptions struct {
	configFile string
	envFile    string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "marketcrawler",
		Short: "Crawl a real-estate company's site and estimate its local market potential.",
		Long: `marketcrawler crawls a company website, summarizes the business and the
areas it serves, and builds market reports for those areas from public
statistics with a bundled fallback dataset.`,
		SilenceUsage: true,

		// Builds the application once the flags are parsed and stores it in the
		// context for the subcommand.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(opts.envFile); err != nil {
				return err
			}
			path := opts.configFile
			if path == "" {
				if wd, err := os.Getwd(); err == nil {
					path = config.DiscoverPath(wd)
				}
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				File:        cfg.Logging.File,
				MaxSizeMB:   cfg.Logging.MaxSizeMB,
				MaxBackups:  cfg.Logging.MaxBackups,
				MaxAgeDays:  cfg.Logging.MaxAgeDays,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			holder, ok := cmd.Context().Value(appKey).(*appHolder)
			if !ok {
				holder = &appHolder{}
				cmd.SetContext(context.WithValue(cmd.Context(), appKey, holder))
			}
			holder.app = appInstance
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML, TOML, or JSON); defaults to ./config.yaml, then the user config dir")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with API keys; ignored when missing")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newMarketCmd())
	cmd.AddCommand(newAnalyzeCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	ctx := context.Background()
	if err := executeRoot(ctx, newRootCmd()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// executeRoot runs root and closes the App it built once the subcommand
// returns, whether or not the subcommand failed.
func executeRoot(ctx context.Context, root *cobra.Command) error {
	holder := &appHolder{}
	defer func() {
		if holder.app != nil {
			closeApp(holder.app)
		}
	}()
	return root.ExecuteContext(context.WithValue(ctx, appKey, holder))
}

func resolveApp(ctx context.Context) (*app.App, error) {
	holder, ok := ctx.Value(appKey).(*appHolder)
	if !ok || holder.app == nil {
		return nil, errors.New("application services not initialized")
	}
	return holder.app, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
