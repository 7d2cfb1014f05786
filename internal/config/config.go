package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Kelly     KellyConfig     `yaml:"kelly" mapstructure:"kelly"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ReconcileConfig tunes identity resolution and the per-competition cycle.
type ReconcileConfig struct {
	MaxSkew             time.Duration `yaml:"max_skew" mapstructure:"max_skew"`
	SimilarityThreshold float64       `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	NoisyTimeout        time.Duration `yaml:"noisy_timeout" mapstructure:"noisy_timeout"`
	PollInterval        time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	LoopInterval        time.Duration `yaml:"loop_interval" mapstructure:"loop_interval"`
}

// CompetitionConfig names a competition and the tournament pages to scrape for it.
type CompetitionConfig struct {
	Name string   `yaml:"name" mapstructure:"name"`
	URLs []string `yaml:"urls" mapstructure:"urls"`
}

// FetchConfig configures the odds website scraper.
type FetchConfig struct {
	Competitions  []CompetitionConfig `yaml:"competitions" mapstructure:"competitions"`
	Skip          []string            `yaml:"skip" mapstructure:"skip"`
	Fetcher       string              `yaml:"fetcher" mapstructure:"fetcher"`
	PageTimeout   time.Duration       `yaml:"page_timeout" mapstructure:"page_timeout"`
	Settle        time.Duration       `yaml:"settle" mapstructure:"settle"`
	MaxAttempts   int                 `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoff  time.Duration       `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	RatePerMinute int                 `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	Concurrency   int                 `yaml:"concurrency" mapstructure:"concurrency"`
	UserAgent     string              `yaml:"user_agent" mapstructure:"user_agent"`
}

// CacheConfig configures the scraped-page cache.
type CacheConfig struct {
	Backend  string        `yaml:"backend" mapstructure:"backend"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Capacity int           `yaml:"capacity" mapstructure:"capacity"`
}

// OCRConfig configures where recognised screen frames come from.
type OCRConfig struct {
	Source   string `yaml:"source" mapstructure:"source"`
	SpoolDir string `yaml:"spool_dir" mapstructure:"spool_dir"`
}

// KellyConfig holds stake sizing parameters.
type KellyConfig struct {
	MinFraction float64 `yaml:"min_fraction" mapstructure:"min_fraction"`
	MaxFraction float64 `yaml:"max_fraction" mapstructure:"max_fraction"`
	Scale       float64 `yaml:"scale" mapstructure:"scale"`
	RoundTo     float64 `yaml:"round_to" mapstructure:"round_to"`
}

// RedisConfig configures the optional Redis cache and stream publisher.
type RedisConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	StreamPrefix string `yaml:"stream_prefix" mapstructure:"stream_prefix"`
	MaxLen       int64  `yaml:"max_len" mapstructure:"max_len"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("ODDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("reconcile.max_skew", 30*time.Minute)
	v.SetDefault("reconcile.similarity_threshold", 0.8)
	v.SetDefault("reconcile.noisy_timeout", 60*time.Second)
	v.SetDefault("reconcile.poll_interval", time.Second)
	v.SetDefault("reconcile.loop_interval", 5*time.Minute)
	v.SetDefault("fetch.fetcher", "browser")
	v.SetDefault("fetch.page_timeout", 60*time.Second)
	v.SetDefault("fetch.settle", 10*time.Second)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.retry_backoff", 5*time.Second)
	v.SetDefault("fetch.rate_per_minute", 6)
	v.SetDefault("fetch.concurrency", 2)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 600*time.Second)
	v.SetDefault("cache.capacity", 100)
	v.SetDefault("ocr.source", "dir")
	v.SetDefault("ocr.spool_dir", "spool")
	v.SetDefault("kelly.min_fraction", 0.02)
	v.SetDefault("kelly.max_fraction", 0.5)
	v.SetDefault("kelly.scale", 200)
	v.SetDefault("kelly.round_to", 100)
	v.SetDefault("redis.stream_prefix", "odds.reconciled")
	v.SetDefault("redis.max_len", 10000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

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

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.DataDir == "" {
			return eris.New("config: store.data_dir is required for sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for postgres")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	if c.Reconcile.SimilarityThreshold <= 0 || c.Reconcile.SimilarityThreshold > 1 {
		return eris.Errorf("config: reconcile.similarity_threshold %v outside (0,1]", c.Reconcile.SimilarityThreshold)
	}
	if c.Reconcile.MaxSkew <= 0 {
		return eris.New("config: reconcile.max_skew must be positive")
	}
	if !slices.Contains([]string{"browser", "http"}, c.Fetch.Fetcher) {
		return eris.Errorf("config: unknown fetch.fetcher %q", c.Fetch.Fetcher)
	}
	if !slices.Contains([]string{"memory", "redis"}, c.Cache.Backend) {
		return eris.Errorf("config: unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Redis.URL == "" {
		return eris.New("config: cache.backend redis requires redis.url")
	}
	if !slices.Contains([]string{"dir", "inbox"}, c.OCR.Source) {
		return eris.Errorf("config: unknown ocr.source %q", c.OCR.Source)
	}
	return nil
}

// Competition returns the configured competition by name.
func (c *Config) Competition(name string) (CompetitionConfig, bool) {
	for _, comp := range c.Fetch.Competitions {
		if comp.Name == name {
			return comp, true
		}
	}
	return CompetitionConfig{}, false
}

// CompetitionNames lists configured competitions in file order.
func (c *Config) CompetitionNames() []string {
	names := make([]string, 0, len(c.Fetch.Competitions))
	for _, comp := range c.Fetch.Competitions {
		names = append(names, comp.Name)
	}
	return names
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
