package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/company-sift/internal/scorer"
)

// EnvPrefix is prepended to every environment override, e.g.
// COMPANY_SIFT_PROCESSING_BATCH_SIZE.
const EnvPrefix = "COMPANY_SIFT"

// APIKeyEnv is the conventional variable holding the search API key. It is
// consulted when search.api_key is not set.
const APIKeyEnv = "DUCKDUCKGO_API_KEY"

// Config holds the full application configuration.
type Config struct {
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Filtering  FilteringConfig  `yaml:"filtering" mapstructure:"filtering"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SearchConfig configures the search provider.
type SearchConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // rapidapi or html
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	MaxResults  int     `yaml:"max_results" mapstructure:"max_results"`

	// BreakerThreshold consecutive failed searches stop the run; 0 disables.
	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// ScoringConfig configures confidence and URL-quality scoring.
type ScoringConfig struct {
	MinConfidence       float64        `yaml:"min_confidence" mapstructure:"min_confidence"`
	Weights             scorer.Weights `yaml:"weights" mapstructure:"weights"`
	URLQualityThreshold float64        `yaml:"url_quality_threshold" mapstructure:"url_quality_threshold"`
	RequireURLQuality   bool           `yaml:"require_url_quality" mapstructure:"require_url_quality"`
}

// ProcessingConfig configures batching.
type ProcessingConfig struct {
	BatchSize       int  `yaml:"batch_size" mapstructure:"batch_size"`
	MaxCandidates   int  `yaml:"max_candidates" mapstructure:"max_candidates"`
	Concurrency     int  `yaml:"concurrency" mapstructure:"concurrency"`
	WriteBatchFiles bool `yaml:"write_batch_files" mapstructure:"write_batch_files"`
}

// FilteringConfig configures the static blocklist and aggregator detection.
type FilteringConfig struct {
	Blocklist           []string `yaml:"blocklist" mapstructure:"blocklist"`
	BlocklistFile       string   `yaml:"blocklist_file" mapstructure:"blocklist_file"`
	Dynamic             bool     `yaml:"dynamic" mapstructure:"dynamic"`
	AggregatorThreshold float64  `yaml:"aggregator_threshold" mapstructure:"aggregator_threshold"`
	MinOccurrences      int      `yaml:"min_occurrences" mapstructure:"min_occurrences"`
	MinSuspicion        float64  `yaml:"min_suspicion" mapstructure:"min_suspicion"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = os.Getenv(APIKeyEnv)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("search.provider", d.Search.Provider)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.rate_limit", d.Search.RateLimit)
	v.SetDefault("search.timeout_secs", d.Search.TimeoutSecs)
	v.SetDefault("search.max_retries", d.Search.MaxRetries)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.breaker_threshold", d.Search.BreakerThreshold)
	v.SetDefault("search.breaker_cooldown_secs", d.Search.BreakerCooldownSecs)
	v.SetDefault("scoring.min_confidence", d.Scoring.MinConfidence)
	v.SetDefault("scoring.weights.domain_match", d.Scoring.Weights.DomainMatch)
	v.SetDefault("scoring.weights.tld_relevance", d.Scoring.Weights.TLDRelevance)
	v.SetDefault("scoring.weights.search_position", d.Scoring.Weights.SearchPosition)
	v.SetDefault("scoring.weights.title_match", d.Scoring.Weights.TitleMatch)
	v.SetDefault("scoring.url_quality_threshold", d.Scoring.URLQualityThreshold)
	v.SetDefault("scoring.require_url_quality", d.Scoring.RequireURLQuality)
	v.SetDefault("processing.batch_size", d.Processing.BatchSize)
	v.SetDefault("processing.max_candidates", d.Processing.MaxCandidates)
	v.SetDefault("processing.concurrency", d.Processing.Concurrency)
	v.SetDefault("processing.write_batch_files", d.Processing.WriteBatchFiles)
	v.SetDefault("filtering.blocklist", d.Filtering.Blocklist)
	v.SetDefault("filtering.blocklist_file", d.Filtering.BlocklistFile)
	v.SetDefault("filtering.dynamic", d.Filtering.Dynamic)
	v.SetDefault("filtering.aggregator_threshold", d.Filtering.AggregatorThreshold)
	v.SetDefault("filtering.min_occurrences", d.Filtering.MinOccurrences)
	v.SetDefault("filtering.min_suspicion", d.Filtering.MinSuspicion)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.database_url", d.Store.DatabaseURL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Default returns the built-in configuration. It is also what
// `config example` prints.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Provider:    "rapidapi",
			RateLimit:   4.5,
			TimeoutSecs: 30,
			MaxRetries:  5,
			MaxResults:  10,

			BreakerThreshold:    10,
			BreakerCooldownSecs: 60,
		},
		Scoring: ScoringConfig{
			MinConfidence:       scorer.DefaultMinConfidence,
			Weights:             scorer.DefaultWeights(),
			URLQualityThreshold: scorer.DefaultQualityThreshold,
		},
		Processing: ProcessingConfig{
			BatchSize:   100,
			Concurrency: 4,
		},
		Filtering: FilteringConfig{
			Blocklist:           []string{},
			BlocklistFile:       "blocklist.yaml",
			Dynamic:             true,
			AggregatorThreshold: 0.3,
			MinOccurrences:      3,
			MinSuspicion:        0.1,
		},
		Store: StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: "company-sift.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for the given mode. "process" also
// requires search credentials; "offline" covers commands that never touch
// the network.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "process":
		switch c.Search.Provider {
		case "rapidapi":
			if strings.TrimSpace(c.Search.APIKey) == "" {
				errs = append(errs, fmt.Sprintf("search.api_key is required for provider rapidapi (or set %s)", APIKeyEnv))
			}
		case "html":
		default:
			errs = append(errs, fmt.Sprintf("search.provider must be rapidapi or html, got %q", c.Search.Provider))
		}
		if c.Search.RateLimit <= 0 {
			errs = append(errs, "search.rate_limit must be > 0")
		}
		if c.Search.MaxResults < 1 {
			errs = append(errs, "search.max_results must be >= 1")
		}
		if c.Search.MaxRetries < 0 {
			errs = append(errs, "search.max_retries must be >= 0")
		}
		if c.Search.BreakerThreshold < 0 {
			errs = append(errs, "search.breaker_threshold must be >= 0")
		}
	case "offline":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if err := scorer.ValidateWeights(c.Scoring.Weights); err != nil {
		errs = append(errs, fmt.Sprintf("scoring.weights invalid: %v", err))
	}
	if c.Scoring.MinConfidence < 0 || c.Scoring.MinConfidence > 100 {
		errs = append(errs, "scoring.min_confidence must be between 0 and 100")
	}
	if c.Scoring.URLQualityThreshold < 0 || c.Scoring.URLQualityThreshold > 100 {
		errs = append(errs, "scoring.url_quality_threshold must be between 0 and 100")
	}
	if c.Processing.BatchSize < 1 {
		errs = append(errs, "processing.batch_size must be >= 1")
	}
	if c.Processing.MaxCandidates < 0 {
		errs = append(errs, "processing.max_candidates must be >= 0")
	}
	if c.Processing.Concurrency < 1 || c.Processing.Concurrency > 50 {
		errs = append(errs, "processing.concurrency must be between 1 and 50")
	}
	if c.Filtering.AggregatorThreshold <= 0 || c.Filtering.AggregatorThreshold > 1 {
		errs = append(errs, "filtering.aggregator_threshold must be in (0, 1]")
	}
	if c.Filtering.MinOccurrences < 1 {
		errs = append(errs, "filtering.min_occurrences must be >= 1")
	}
	if c.Filtering.MinSuspicion < 0 || c.Filtering.MinSuspicion > c.Filtering.AggregatorThreshold {
		errs = append(errs, "filtering.min_suspicion must be between 0 and filtering.aggregator_threshold")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for driver postgres")
	}

	if len(errs) > 0 {
		return eris.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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
