// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/market-potential-crawler/internal/crawler"
	"github.com/JakeFAU/market-potential-crawler/internal/market"
)

// EnvPrefix namespaces environment overrides, e.g. MARKET_SERVER_PORT.
const EnvPrefix = "MARKET"

// AppName names the per-user config directory.
const AppName = "marketcrawler"

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "config.yaml"

// Storage backends.
const (
	StorageNone   = "none"
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageGCS    = "gcs"
	StorageS3     = "s3"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Market   MarketConfig   `mapstructure:"market"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig bounds each crawl.
type CrawlerConfig struct {
	UserAgent      string        `mapstructure:"user_agent"`
	MaxPages       int           `mapstructure:"max_pages"`
	MaxDepth       int           `mapstructure:"max_depth"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Delay          time.Duration `mapstructure:"delay"`
	MaxTextChars   int           `mapstructure:"max_text_chars"`
}

// Engine converts the section into crawl bounds.
func (c CrawlerConfig) Engine() crawler.Config {
	return crawler.Config{
		MaxPages:     c.MaxPages,
		MaxDepth:     c.MaxDepth,
		Delay:        c.Delay,
		MaxTextChars: c.MaxTextChars,
	}
}

// MarketConfig configures the statistics sources. Empty keys disable the
// corresponding source.
type MarketConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	RequestsPerSec   float64       `mapstructure:"requests_per_second"`
	DatasetFile      string        `mapstructure:"dataset_file"`
	ResasAPIKey      string        `mapstructure:"resas_api_key"`
	ResasBaseURL     string        `mapstructure:"resas_base_url"`
	EStatAPIKey      string        `mapstructure:"estat_api_key"`
	EStatBaseURL     string        `mapstructure:"estat_base_url"`
	ReinfolibAPIKey  string        `mapstructure:"reinfolib_api_key"`
	ReinfolibBaseURL string        `mapstructure:"reinfolib_base_url"`
	LandPriceEnabled bool          `mapstructure:"land_price_enabled"`
	LandPriceBaseURL string        `mapstructure:"land_price_base_url"`
	EStat            EStatConfig   `mapstructure:"estat"`
}

// EStatConfig names the e-Stat tables and cat01 codes.
type EStatConfig struct {
	PopulationID             string `mapstructure:"population_id"`
	PopulationTotalCode      string `mapstructure:"population_total_code"`
	PopulationHouseholdCode  string `mapstructure:"population_household_code"`
	ConstructionID           string `mapstructure:"construction_id"`
	ConstructionOwnerCode    string `mapstructure:"construction_owner_code"`
	ConstructionTotalCode    string `mapstructure:"construction_total_code"`
	HousingID                string `mapstructure:"housing_id"`
	HousingOwnershipCode     string `mapstructure:"housing_ownership_code"`
	HousingVacancyCode       string `mapstructure:"housing_vacancy_code"`
	HousingRentalVacancyCode string `mapstructure:"housing_rental_vacancy_code"`
	CompetitionID            string `mapstructure:"competition_id"`
	CompetitionCountCode     string `mapstructure:"competition_count_code"`
}

// Tables converts the section into market.EStatTables.
func (c EStatConfig) Tables() market.EStatTables {
	return market.EStatTables{
		PopulationID:             c.PopulationID,
		PopulationTotalCode:      c.PopulationTotalCode,
		PopulationHouseholdCode:  c.PopulationHouseholdCode,
		ConstructionID:           c.ConstructionID,
		ConstructionOwnerCode:    c.ConstructionOwnerCode,
		ConstructionTotalCode:    c.ConstructionTotalCode,
		HousingID:                c.HousingID,
		HousingOwnershipCode:     c.HousingOwnershipCode,
		HousingVacancyCode:       c.HousingVacancyCode,
		HousingRentalVacancyCode: c.HousingRentalVacancyCode,
		CompetitionID:            c.CompetitionID,
		CompetitionCountCode:     c.CompetitionCountCode,
	}
}

// AnalyzerConfig configures the chat-completion model.
type AnalyzerConfig struct {
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	MaxChars     int           `mapstructure:"max_chars"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects where crawl archives are written.
type StorageConfig struct {
	Backend   string   `mapstructure:"backend"`
	LocalDir  string   `mapstructure:"local_dir"`
	GCSBucket string   `mapstructure:"gcs_bucket"`
	Prefix    string   `mapstructure:"prefix"`
	S3        S3Config `mapstructure:"s3"`
}

// S3Config points at an S3-compatible endpoint such as MinIO.
type S3Config struct {
	Endpoint     string `mapstructure:"endpoint"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features and the optional file sink.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// legacyEnv maps keys to the unprefixed variable names used by existing
// deployments.
var legacyEnv = map[string]string{
	"market.resas_api_key":     "RESAS_API_KEY",
	"market.estat_api_key":     "ESTAT_API_KEY",
	"market.reinfolib_api_key": "REINFOLIB_API_KEY",
	"analyzer.openai_api_key":  "OPENAI_API_KEY",
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// UserConfigPath returns the config file location under the XDG config home,
// e.g. ~/.config/marketcrawler/config.yaml on Linux.
func UserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, DefaultFileName)
}

// DiscoverPath returns the first existing file among the working directory's
// config.yaml and UserConfigPath. It returns "" when neither exists.
func DiscoverPath(workDir string) string {
	candidates := []string{
		filepath.Join(workDir, DefaultFileName),
		UserConfigPath(),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, env := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")

	v.SetDefault("crawler.user_agent", "")
	v.SetDefault("crawler.max_pages", crawler.DefaultMaxPages)
	v.SetDefault("crawler.max_depth", crawler.DefaultMaxDepth)
	v.SetDefault("crawler.request_timeout", 15*time.Second)
	v.SetDefault("crawler.delay", crawler.DefaultDelay)
	v.SetDefault("crawler.max_text_chars", crawler.DefaultMaxTextChars)

	v.SetDefault("market.timeout", 10*time.Second)
	v.SetDefault("market.requests_per_second", 2.0)
	v.SetDefault("market.dataset_file", "")
	v.SetDefault("market.resas_api_key", "")
	v.SetDefault("market.resas_base_url", "")
	v.SetDefault("market.estat_api_key", "")
	v.SetDefault("market.estat_base_url", "")
	v.SetDefault("market.reinfolib_api_key", "")
	v.SetDefault("market.reinfolib_base_url", "")
	v.SetDefault("market.land_price_enabled", true)
	v.SetDefault("market.land_price_base_url", "")
	v.SetDefault("market.estat.population_id", market.DefaultPopulationStatsID)
	v.SetDefault("market.estat.population_total_code", "")
	v.SetDefault("market.estat.population_household_code", "")
	v.SetDefault("market.estat.construction_id", market.DefaultConstructionStatsID)
	v.SetDefault("market.estat.construction_owner_code", "")
	v.SetDefault("market.estat.construction_total_code", "")
	v.SetDefault("market.estat.housing_id", "")
	v.SetDefault("market.estat.housing_ownership_code", "")
	v.SetDefault("market.estat.housing_vacancy_code", "")
	v.SetDefault("market.estat.housing_rental_vacancy_code", "")
	v.SetDefault("market.estat.competition_id", "")
	v.SetDefault("market.estat.competition_count_code", "")

	v.SetDefault("analyzer.openai_api_key", "")
	v.SetDefault("analyzer.base_url", "")
	v.SetDefault("analyzer.model", "gpt-4o")
	v.SetDefault("analyzer.temperature", 0.3)
	v.SetDefault("analyzer.max_tokens", 2000)
	v.SetDefault("analyzer.max_chars", 15000)
	v.SetDefault("analyzer.timeout", 60*time.Second)

	v.SetDefault("storage.backend", StorageNone)
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "archive")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("storage.s3.create_bucket", false)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "market_reports")

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Market.RequestsPerSec < 0 {
		return fmt.Errorf("market.requests_per_second must be >= 0")
	}
	if c.Crawler.Delay < 0 {
		return fmt.Errorf("crawler.delay must be >= 0")
	}
	switch c.Storage.Backend {
	case StorageNone, StorageMemory:
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	case StorageS3:
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.endpoint and storage.s3.bucket must be set for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of none, memory, local, gcs, s3", c.Storage.Backend)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}
