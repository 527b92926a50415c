package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Crawl    CrawlConfig    `yaml:"crawl" mapstructure:"crawl"`
	Writer   WriterConfig   `yaml:"writer" mapstructure:"writer"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`

	// KeywordsFile optionally points to a standalone YAML file replacing the
	// built-in keyword sets. Resolved into Keywords by Load.
	KeywordsFile string   `yaml:"keywords_file" mapstructure:"keywords_file"`
	Keywords     Keywords `yaml:"-" mapstructure:"-"`
}

// StoreConfig selects and configures the persisted tabular store.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"` // sheets | sqlite
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Token         string `yaml:"token" mapstructure:"token"`
	SpreadsheetID string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name" mapstructure:"sheet_name"`
	SheetGID      int    `yaml:"sheet_gid" mapstructure:"sheet_gid"`
	SQLitePath    string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SearchConfig configures the site-resolution search transports.
type SearchConfig struct {
	MaxResults  int    `yaml:"max_results" mapstructure:"max_results"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	HTMLBaseURL string `yaml:"html_base_url" mapstructure:"html_base_url"`
	APIBaseURL  string `yaml:"api_base_url" mapstructure:"api_base_url"`
}

// CrawlConfig configures page discovery and fetching.
type CrawlConfig struct {
	MaxPages           int     `yaml:"max_pages" mapstructure:"max_pages"`
	TimeoutSecs        int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	SitemapTimeoutSecs int     `yaml:"sitemap_timeout_secs" mapstructure:"sitemap_timeout_secs"`
	MaxPageRetries     int     `yaml:"max_page_retries" mapstructure:"max_page_retries"`
	PerHostRPS         float64 `yaml:"per_host_rps" mapstructure:"per_host_rps"`
	RequireNameMatch   bool    `yaml:"require_name_match" mapstructure:"require_name_match"`
	UserAgent          string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// WriterConfig configures the rate-limited store writer.
type WriterConfig struct {
	WritesPerMinute int `yaml:"writes_per_minute" mapstructure:"writes_per_minute"`
	MaxAttempts     int `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelayMS    int `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	QuotaDelayMS    int `yaml:"quota_delay_ms" mapstructure:"quota_delay_ms"`
}

// PipelineConfig configures orchestration behavior.
type PipelineConfig struct {
	ReconcileEvery int `yaml:"reconcile_every" mapstructure:"reconcile_every"`
}

// BatchConfig configures the per-organization fan-out.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sheets")
	v.SetDefault("store.base_url", "https://sheets.googleapis.com/v4")
	v.SetDefault("store.sheet_name", "Sheet1")
	v.SetDefault("store.sheet_gid", 0)
	v.SetDefault("store.sqlite_path", "outreach.db")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.timeout_secs", 10)
	v.SetDefault("search.html_base_url", "https://html.duckduckgo.com")
	v.SetDefault("search.api_base_url", "https://api.duckduckgo.com")
	v.SetDefault("crawl.max_pages", 6)
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.sitemap_timeout_secs", 5)
	v.SetDefault("crawl.max_page_retries", 2)
	v.SetDefault("crawl.per_host_rps", 2.0)
	v.SetDefault("crawl.require_name_match", true)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; OutreachBot/1.0)")
	v.SetDefault("writer.writes_per_minute", 60)
	v.SetDefault("writer.max_attempts", 3)
	v.SetDefault("writer.retry_delay_ms", 1500)
	v.SetDefault("writer.quota_delay_ms", 10000)
	v.SetDefault("pipeline.reconcile_every", 10)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("keywords_file", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Keywords = DefaultKeywords()
	if cfg.KeywordsFile != "" {
		kw, err := LoadKeywordsFile(cfg.KeywordsFile)
		if err != nil {
			return nil, err
		}
		cfg.Keywords = kw
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
