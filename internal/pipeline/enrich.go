// Package pipeline turns company records into ranked candidate websites:
// search, filter, score, and persist in resumable batches.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/filter"
	"github.com/sells-group/company-sift/internal/model"
	"github.com/sells-group/company-sift/internal/resilience"
	"github.com/sells-group/company-sift/internal/scorer"
	"github.com/sells-group/company-sift/pkg/ddg"
)

// NoMatchMessage is the error message on the placeholder row written for a
// company with no candidate above the confidence threshold.
const NoMatchMessage = "No high-confidence matches found"

// Searcher finds candidate pages for a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

type ddgSearcher struct {
	client ddg.Client
}

// NewSearcher adapts a ddg client to Searcher. Results with an invalid
// position are dropped.
func NewSearcher(client ddg.Client) Searcher {
	return &ddgSearcher{client: client}
}

func (s *ddgSearcher) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	raw, err := s.client.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(raw))
	for _, r := range raw {
		sr, err := model.NewSearchResult(r.URL, r.Title, r.Snippet, r.Position)
		if err != nil {
			zap.L().Debug("pipeline: dropping search result", zap.String("url", r.URL), zap.Error(err))
			continue
		}
		out = append(out, sr)
	}
	return out, nil
}

// EnricherConfig tunes candidate selection.
type EnricherConfig struct {
	MaxResults        int     // results requested per search
	MinConfidence     float64 // candidates below this score are dropped
	MaxCandidates     int     // 0 keeps all
	RequireURLQuality bool    // drop candidates the URL-quality analyzer rejects
}

// Enricher finds and ranks website candidates for one company at a time. It
// is safe for concurrent use.
type Enricher struct {
	searcher Searcher
	filter   *filter.EnhancedFilter
	scorer   *scorer.ConfidenceScorer
	quality  *scorer.QualityCache
	cfg      EnricherConfig
}

// NewEnricher wires the enrichment steps together. A nil quality cache is
// replaced by one with default settings.
func NewEnricher(s Searcher, f *filter.EnhancedFilter, sc *scorer.ConfidenceScorer, q *scorer.QualityCache, cfg EnricherConfig) *Enricher {
	if q == nil {
		q = scorer.NewQualityCache(nil)
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &Enricher{searcher: s, filter: f, scorer: sc, quality: q, cfg: cfg}
}

// Enrich returns the company's candidates in rank order. A failed search or
// an empty shortlist yields a single error placeholder rather than a Go
// error. Only context cancellation and an open search circuit are returned
// as errors.
func (e *Enricher) Enrich(ctx context.Context, company model.Company) ([]model.ScoredResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "pipeline: enrich %s", company.Number)
	}
	log := zap.L().With(zap.String("company_number", company.Number), zap.String("company", company.Name))

	results, err := e.searcher.Search(ctx, company.Name, e.cfg.MaxResults)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "pipeline: search %s", company.Number)
		}
		if eris.Is(err, resilience.ErrCircuitOpen) {
			return nil, eris.Wrapf(err, "pipeline: search %s", company.Number)
		}
		log.Warn("pipeline: search failed", zap.Error(err))
		return []model.ScoredResult{model.NewErrorResult(company, fmt.Sprintf("search failed: %v", err))}, nil
	}

	kept := e.filter.Filter(company.Name, results)
	ranked := e.scorer.Rank(company, kept)

	out := make([]model.ScoredResult, 0, len(ranked))
	for _, r := range ranked {
		if r.Score < e.cfg.MinConfidence {
			continue
		}
		if e.cfg.RequireURLQuality && !e.quality.IsHighQuality(company.Name, r.Result.URL) {
			log.Debug("pipeline: dropping low-quality url", zap.String("url", r.Result.URL))
			continue
		}
		out = append(out, r)
		if e.cfg.MaxCandidates > 0 && len(out) == e.cfg.MaxCandidates {
			break
		}
	}

	log.Debug("pipeline: company enriched",
		zap.Int("results", len(results)),
		zap.Int("after_filter", len(kept)),
		zap.Int("candidates", len(out)),
	)

	if len(out) == 0 {
		return []model.ScoredResult{model.NewErrorResult(company, NoMatchMessage)}, nil
	}
	return out, nil
}
