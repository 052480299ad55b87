package model

import (
	"github.com/rotisserie/eris"
)

// SearchResult is one candidate URL returned by the search provider.
// Position is 1-based in provider order; 0 means the position is unknown.
type SearchResult struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

// NewSearchResult builds a SearchResult, rejecting negative positions.
func NewSearchResult(url, title, snippet string, position int) (SearchResult, error) {
	if position < 0 {
		return SearchResult{}, eris.Errorf("model: search position must be non-negative, got %d", position)
	}
	return SearchResult{
		URL:      url,
		Title:    title,
		Snippet:  snippet,
		Position: position,
	}, nil
}

// Breakdown holds the four confidence sub-scores, each in [0,1].
type Breakdown struct {
	DomainMatch    float64 `json:"domain_match"`
	TLDRelevance   float64 `json:"tld_relevance"`
	SearchPosition float64 `json:"search_position"`
	TitleMatch     float64 `json:"title_match"`
}

// Map returns the breakdown keyed by sub-score name.
func (b Breakdown) Map() map[string]float64 {
	return map[string]float64{
		"domain_match":    b.DomainMatch,
		"tld_relevance":   b.TLDRelevance,
		"search_position": b.SearchPosition,
		"title_match":     b.TitleMatch,
	}
}

// ScoredResult pairs a company with a scored candidate. When ErrorFlag is
// set the row is a placeholder: Result and Breakdown are nil and Score is 0.
type ScoredResult struct {
	Company      Company       `json:"company"`
	Result       *SearchResult `json:"result,omitempty"`
	Score        float64       `json:"confidence_score"`
	Breakdown    *Breakdown    `json:"breakdown,omitempty"`
	ErrorFlag    bool          `json:"error_flag"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// NewScoredResult builds a ScoredResult, rejecting scores outside [0,100].
func NewScoredResult(company Company, result SearchResult, score float64, breakdown Breakdown) (ScoredResult, error) {
	if score < 0 || score > 100 {
		return ScoredResult{}, eris.Errorf("model: confidence score must be within [0, 100], got %v", score)
	}
	return ScoredResult{
		Company:   company,
		Result:    &result,
		Score:     score,
		Breakdown: &breakdown,
	}, nil
}

// NewErrorResult builds the placeholder written for a company whose search
// or scoring failed.
func NewErrorResult(company Company, message string) ScoredResult {
	return ScoredResult{
		Company:      company,
		ErrorFlag:    true,
		ErrorMessage: message,
	}
}

// FilterReason explains why a candidate was dropped.
type FilterReason string

const (
	ReasonNone              FilterReason = ""
	ReasonStaticBlocklist   FilterReason = "static_blocklist"
	ReasonDynamicAggregator FilterReason = "dynamic_aggregator"
)

// FilteredResult records the filtering decision for one candidate.
type FilteredResult struct {
	Result       SearchResult `json:"result"`
	Reason       FilterReason `json:"reason,omitempty"`
	IsAggregator bool         `json:"is_aggregator"`
}

// ShouldInclude reports whether the candidate survived filtering.
func (f FilteredResult) ShouldInclude() bool {
	return f.Reason == ReasonNone
}
