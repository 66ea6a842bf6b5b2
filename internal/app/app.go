// Package app initializes and holds long-lived application services, acting
// as the dependency injection container shared by every CLI command.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/analyzer"
	"github.com/JakeFAU/market-potential-crawler/internal/api"
	"github.com/JakeFAU/market-potential-crawler/internal/archive"
	"github.com/JakeFAU/market-potential-crawler/internal/clock/system"
	"github.com/JakeFAU/market-potential-crawler/internal/config"
	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/market-potential-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/market-potential-crawler/internal/hash/sha256"
	"github.com/JakeFAU/market-potential-crawler/internal/id/uuid"
	"github.com/JakeFAU/market-potential-crawler/internal/market"
	"github.com/JakeFAU/market-potential-crawler/internal/market/estat"
	"github.com/JakeFAU/market-potential-crawler/internal/market/landprice"
	"github.com/JakeFAU/market-potential-crawler/internal/market/reinfolib"
	"github.com/JakeFAU/market-potential-crawler/internal/market/resas"
	"github.com/JakeFAU/market-potential-crawler/internal/metrics"
	"github.com/JakeFAU/market-potential-crawler/internal/policy/ratelimit"
	pubmemory "github.com/JakeFAU/market-potential-crawler/internal/publisher/memory"
	"github.com/JakeFAU/market-potential-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/market-potential-crawler/internal/storage"
	"github.com/JakeFAU/market-potential-crawler/internal/storage/gcs"
	"github.com/JakeFAU/market-potential-crawler/internal/storage/local"
	"github.com/JakeFAU/market-potential-crawler/internal/storage/memory"
	"github.com/JakeFAU/market-potential-crawler/internal/storage/postgres"
	"github.com/JakeFAU/market-potential-crawler/internal/storage/s3"
)

// Version is reported by the health endpoint.
const Version = "1.1.0"

// App holds the shared, long-lived services. It is built once per command
// invocation and closed by the root command's post-run hook.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	engine   *crawler.Engine
	market   *market.Service
	analyzer *analyzer.Analyzer
	archive  *archive.Archiver
	closers  []func() error
}

// New wires every service from configuration. Optional sinks (GCS, Postgres,
// Pub/Sub) are dialed only when configured and fail fast when unreachable.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{cfg: cfg, logger: logger}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.Crawler.RequestTimeout,
	})
	a.engine = crawler.NewEngine(cfg.Crawler.Engine(), fetcher, logger.Named("crawler"))

	svc, err := newMarketService(cfg.Market, logger.Named("market"))
	if err != nil {
		return nil, err
	}
	a.market = svc

	var completer analyzer.Completer
	if cfg.Analyzer.OpenAIAPIKey != "" {
		completer = analyzer.NewChatClient(analyzer.ChatConfig{
			APIKey:      cfg.Analyzer.OpenAIAPIKey,
			BaseURL:     cfg.Analyzer.BaseURL,
			Model:       cfg.Analyzer.Model,
			Temperature: cfg.Analyzer.Temperature,
			MaxTokens:   cfg.Analyzer.MaxTokens,
			Timeout:     cfg.Analyzer.Timeout,
		})
	} else {
		logger.Warn("analyzer.openai_api_key not set; summaries use keyword analysis")
	}
	a.analyzer = analyzer.New(completer, cfg.Analyzer.MaxChars, logger.Named("analyzer"))

	arch, err := a.newArchiver(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.archive = arch

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("postgres", cfg.DB.DSN != ""),
		zap.Bool("pubsub", cfg.PubSub.TopicName != ""),
	)
	return a, nil
}

func newMarketService(cfg config.MarketConfig, logger *zap.Logger) (*market.Service, error) {
	// One limiter for all upstreams; buckets are per host.
	client := ratelimit.New(ratelimit.Config{RPS: cfg.RequestsPerSec, Burst: 1}).Client(cfg.Timeout)
	src := market.Sources{
		RESAS: resas.New(resas.Config{APIKey: cfg.ResasAPIKey, BaseURL: cfg.ResasBaseURL, HTTPClient: client}),
		EStat: estat.New(estat.Config{AppID: cfg.EStatAPIKey, BaseURL: cfg.EStatBaseURL, HTTPClient: client}),
		Reinfolib: reinfolib.New(reinfolib.Config{
			APIKey:     cfg.ReinfolibAPIKey,
			BaseURL:    cfg.ReinfolibBaseURL,
			HTTPClient: client,
		}),
		Tables: cfg.EStat.Tables(),
		Clock:  system.New(system.JST),
	}
	if cfg.LandPriceEnabled {
		scraper, err := landprice.New(landprice.Config{BaseURL: cfg.LandPriceBaseURL, HTTPClient: client})
		if err != nil {
			return nil, fmt.Errorf("init land price scraper: %w", err)
		}
		src.LandPrice = scraper
	}
	if cfg.DatasetFile != "" {
		ds, err := market.LoadDatasetFile(cfg.DatasetFile)
		if err != nil {
			return nil, fmt.Errorf("load market dataset: %w", err)
		}
		src.Dataset = ds
	}
	return market.NewService(src, logger), nil
}

func (a *App) newArchiver(ctx context.Context) (*archive.Archiver, error) {
	deps := archive.Deps{
		IDs:    uuid.New(),
		Hasher: sha256.New(),
		Clock:  system.New(system.JST),
		Logger: a.logger.Named("archive"),
	}

	switch a.cfg.Storage.Backend {
	case config.StorageMemory:
		deps.Blobs = memory.NewBlobStore()
	case config.StorageLocal:
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		deps.Blobs = store
	case config.StorageGCS:
		store, err := gcs.Open(ctx, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		deps.Blobs = store
	case config.StorageS3:
		s3cfg := a.cfg.Storage.S3
		store, err := s3.Open(ctx, s3.Config{
			Endpoint:     s3cfg.Endpoint,
			Bucket:       s3cfg.Bucket,
			AccessKey:    s3cfg.AccessKey,
			SecretKey:    s3cfg.SecretKey,
			UseSSL:       s3cfg.UseSSL,
			CreateBucket: s3cfg.CreateBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		deps.Blobs = store
	default:
		deps.Blobs = storage.NoOp{}
	}

	if a.cfg.DB.DSN != "" {
		reports, err := postgres.NewReportStore(ctx, postgres.ReportStoreConfig{DSN: a.cfg.DB.DSN, Table: a.cfg.DB.Table})
		if err != nil {
			return nil, fmt.Errorf("init report store: %w", err)
		}
		a.closers = append(a.closers, func() error { reports.Close(); return nil })
		if err := reports.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("init report schema: %w", err)
		}
		deps.Reports = reports
	}

	if a.cfg.PubSub.TopicName != "" {
		pub, err := pubsub.Open(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("init pubsub: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		deps.Publisher = pub
	} else if a.cfg.Storage.Backend == config.StorageMemory {
		// Fully in-process archive; events stay observable for local runs.
		deps.Publisher = pubmemory.New()
	}

	arch, err := archive.New(deps, a.cfg.Storage.Prefix)
	if err != nil {
		return nil, fmt.Errorf("init archive: %w", err)
	}
	return arch, nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Engine returns the crawl engine.
func (a *App) Engine() *crawler.Engine { return a.engine }

// Market returns the market report service.
func (a *App) Market() *market.Service { return a.market }

// Analyzer returns the site summarizer.
func (a *App) Analyzer() *analyzer.Analyzer { return a.analyzer }

// Archive returns the best-effort archiver.
func (a *App) Archive() *archive.Archiver { return a.archive }

// APIServer builds the HTTP server over the application's services.
func (a *App) APIServer() *api.Server {
	return api.NewServer(api.Deps{
		Crawler:  a.engine,
		Analyzer: a.analyzer,
		Market:   a.market,
		Archive:  a.archive,
		Logger:   a.logger.Named("api"),
	}, api.Options{
		AuthEnabled: a.cfg.Auth.Enabled,
		APIKey:      a.cfg.Auth.APIKey,
		Health:      HealthInfo(a.cfg),
	})
}

// HealthInfo summarizes the version, model, and which upstream keys are set.
func HealthInfo(cfg config.Config) api.HealthInfo {
	return api.HealthInfo{
		Version: Version,
		Model:   cfg.Analyzer.Model,
		KeysConfigured: map[string]bool{
			"openai":    cfg.Analyzer.OpenAIAPIKey != "",
			"resas":     cfg.Market.ResasAPIKey != "",
			"estat":     cfg.Market.EStatAPIKey != "",
			"reinfolib": cfg.Market.ReinfolibAPIKey != "",
		},
	}
}

// Close shuts down every dialed client in reverse order and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
