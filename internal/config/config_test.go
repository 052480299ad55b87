package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/scorer"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)
	t.Setenv(APIKeyEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rapidapi", cfg.Search.Provider)
	assert.InDelta(t, 4.5, cfg.Search.RateLimit, 0.001)
	assert.Equal(t, 30, cfg.Search.TimeoutSecs)
	assert.Equal(t, 5, cfg.Search.MaxRetries)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 10, cfg.Search.BreakerThreshold)
	assert.Equal(t, 60, cfg.Search.BreakerCooldownSecs)
	assert.Empty(t, cfg.Search.APIKey)
	assert.InDelta(t, 50, cfg.Scoring.MinConfidence, 0.001)
	assert.Equal(t, scorer.DefaultWeights(), cfg.Scoring.Weights)
	assert.InDelta(t, 60, cfg.Scoring.URLQualityThreshold, 0.001)
	assert.False(t, cfg.Scoring.RequireURLQuality)
	assert.Equal(t, 100, cfg.Processing.BatchSize)
	assert.Equal(t, 4, cfg.Processing.Concurrency)
	assert.Zero(t, cfg.Processing.MaxCandidates)
	assert.True(t, cfg.Filtering.Dynamic)
	assert.InDelta(t, 0.3, cfg.Filtering.AggregatorThreshold, 0.001)
	assert.Equal(t, 3, cfg.Filtering.MinOccurrences)
	assert.Equal(t, "blocklist.yaml", cfg.Filtering.BlocklistFile)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "company-sift.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.NoError(t, cfg.Validate("offline"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
search:
  provider: html
  max_results: 20
scoring:
  min_confidence: 65
  weights:
    domain_match: 0.4
    tld_relevance: 0.2
    search_position: 0.3
    title_match: 0.1
processing:
  batch_size: 25
filtering:
  blocklist:
    - example-directory.com
    - listings.co.uk
store:
  driver: postgres
  database_url: postgres://localhost/sift
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "html", cfg.Search.Provider)
	assert.Equal(t, 20, cfg.Search.MaxResults)
	assert.InDelta(t, 65, cfg.Scoring.MinConfidence, 0.001)
	assert.Equal(t, scorer.LegacyWeights(), cfg.Scoring.Weights)
	assert.Equal(t, 25, cfg.Processing.BatchSize)
	assert.Equal(t, []string{"example-directory.com", "listings.co.uk"}, cfg.Filtering.Blocklist)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 4, cfg.Processing.Concurrency)
	assert.InDelta(t, 4.5, cfg.Search.RateLimit, 0.001)

	assert.NoError(t, cfg.Validate("process"))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
processing:
  batch_size: 25
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("COMPANY_SIFT_LOG_LEVEL", "warn")
	t.Setenv("COMPANY_SIFT_PROCESSING_BATCH_SIZE", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Processing.BatchSize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadAPIKeyFallback(t *testing.T) {
	chdirTemp(t)
	t.Setenv(APIKeyEnv, "fallback-key-123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fallback-key-123", cfg.Search.APIKey)

	t.Setenv("COMPANY_SIFT_SEARCH_API_KEY", "prefixed-key-456")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key-456", cfg.Search.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv(APIKeyEnv, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COMPANY_SIFT_PROCESSING_CONCURRENCY=9\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("COMPANY_SIFT_PROCESSING_CONCURRENCY") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Processing.Concurrency)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("search: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestValidateProcess_RequiresAPIKey(t *testing.T) {
	cfg := Default()

	err := cfg.Validate("process")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.api_key is required")
	assert.Contains(t, err.Error(), APIKeyEnv)

	cfg.Search.APIKey = "rapid-key-0123456789"
	assert.NoError(t, cfg.Validate("process"))

	cfg.Search.APIKey = ""
	cfg.Search.Provider = "html"
	assert.NoError(t, cfg.Validate("process"))
}

func TestValidateProcess_SearchSettings(t *testing.T) {
	cfg := Default()
	cfg.Search.Provider = "bing"
	cfg.Search.RateLimit = 0
	cfg.Search.MaxResults = 0
	cfg.Search.MaxRetries = -1
	cfg.Search.BreakerThreshold = -1

	err := cfg.Validate("process")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `search.provider must be rapidapi or html, got "bing"`)
	assert.Contains(t, err.Error(), "search.rate_limit must be > 0")
	assert.Contains(t, err.Error(), "search.max_results must be >= 1")
	assert.Contains(t, err.Error(), "search.max_retries must be >= 0")
	assert.Contains(t, err.Error(), "search.breaker_threshold must be >= 0")

	// Search settings are not checked offline.
	assert.NoError(t, cfg.Validate("offline"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := Default().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateWeights(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Weights.TitleMatch = -0.1

	err := cfg.Validate("offline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title_match must be >= 0")

	cfg.Scoring.Weights = scorer.Weights{}
	err = cfg.Validate("offline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weight sum must be > 0")
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"min confidence high", func(c *Config) { c.Scoring.MinConfidence = 101 }, "scoring.min_confidence"},
		{"min confidence negative", func(c *Config) { c.Scoring.MinConfidence = -1 }, "scoring.min_confidence"},
		{"quality threshold", func(c *Config) { c.Scoring.URLQualityThreshold = 150 }, "scoring.url_quality_threshold"},
		{"batch size", func(c *Config) { c.Processing.BatchSize = 0 }, "processing.batch_size must be >= 1"},
		{"max candidates", func(c *Config) { c.Processing.MaxCandidates = -1 }, "processing.max_candidates"},
		{"concurrency zero", func(c *Config) { c.Processing.Concurrency = 0 }, "processing.concurrency must be between 1 and 50"},
		{"concurrency high", func(c *Config) { c.Processing.Concurrency = 51 }, "processing.concurrency must be between 1 and 50"},
		{"aggregator threshold", func(c *Config) { c.Filtering.AggregatorThreshold = 0 }, "filtering.aggregator_threshold"},
		{"min occurrences", func(c *Config) { c.Filtering.MinOccurrences = 0 }, "filtering.min_occurrences"},
		{"min suspicion", func(c *Config) { c.Filtering.MinSuspicion = 0.5 }, "filtering.min_suspicion"},
		{"driver", func(c *Config) { c.Store.Driver = "mysql" }, `store.driver must be sqlite or postgres, got "mysql"`},
		{"postgres url", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Store.DatabaseURL = ""
		}, "store.database_url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate("offline")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Processing.BatchSize = 0
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("offline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "processing.batch_size")
	assert.Contains(t, err.Error(), "store.driver")
}
