package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/company-sift/internal/config"
	"github.com/sells-group/company-sift/internal/filter"
	"github.com/sells-group/company-sift/internal/scorer"
	"github.com/sells-group/company-sift/internal/store"
	"github.com/sells-group/company-sift/pkg/ddg"
)

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initFilter builds the enhanced filter from the default, configured and
// file-backed blocklists.
func initFilter(c *config.Config) (*filter.EnhancedFilter, error) {
	domains, err := filter.ResolveBlocklist(c.Filtering.Blocklist, c.Filtering.BlocklistFile)
	if err != nil {
		return nil, err
	}
	return filter.NewEnhancedFilter(
		filter.NewBlocklist(domains),
		filter.NewTracker(),
		filter.WithAggregatorThreshold(c.Filtering.AggregatorThreshold),
		filter.WithMinOccurrences(c.Filtering.MinOccurrences),
		filter.WithDynamicFiltering(c.Filtering.Dynamic),
	), nil
}

func initQualityAnalyzer(c *config.Config) *scorer.URLQualityAnalyzer {
	return scorer.NewURLQualityAnalyzer(scorer.WithQualityThreshold(c.Scoring.URLQualityThreshold))
}

// initSearchClient builds the search client for provider ("rapidapi" or
// "html").
func initSearchClient(c *config.Config, provider string) (ddg.Client, error) {
	opts := []ddg.Option{
		ddg.WithTimeout(time.Duration(c.Search.TimeoutSecs) * time.Second),
		ddg.WithMaxRetries(c.Search.MaxRetries),
	}
	switch provider {
	case "rapidapi":
		opts = append(opts, ddg.WithRateLimit(c.Search.RateLimit))
		return ddg.NewRapidAPIClient(c.Search.APIKey, opts...)
	case "html":
		return ddg.NewHTMLClient(opts...), nil
	default:
		return nil, eris.Errorf("unsupported search provider: %s", provider)
	}
}
