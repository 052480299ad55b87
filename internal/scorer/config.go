// Package scorer ranks candidate URLs by how likely they are to be a
// company's own website.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultMinConfidence is the confidence score below which candidates are
// discarded.
const DefaultMinConfidence = 50.0

// Weights holds the relative importance of the four confidence signals.
type Weights struct {
	DomainMatch    float64 `yaml:"domain_match" mapstructure:"domain_match" json:"domain_match"`
	TLDRelevance   float64 `yaml:"tld_relevance" mapstructure:"tld_relevance" json:"tld_relevance"`
	SearchPosition float64 `yaml:"search_position" mapstructure:"search_position" json:"search_position"`
	TitleMatch     float64 `yaml:"title_match" mapstructure:"title_match" json:"title_match"`
}

// DefaultWeights returns the canonical weights. TLD relevance carries as
// much weight as the domain match so that UK companies prefer UK domains.
func DefaultWeights() Weights {
	return Weights{
		DomainMatch:    0.4,
		TLDRelevance:   0.4,
		SearchPosition: 0.1,
		TitleMatch:     0.1,
	}
}

// LegacyWeights returns the older weighting that leaned on search position.
func LegacyWeights() Weights {
	return Weights{
		DomainMatch:    0.4,
		TLDRelevance:   0.2,
		SearchPosition: 0.3,
		TitleMatch:     0.1,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.DomainMatch + w.TLDRelevance + w.SearchPosition + w.TitleMatch
}

// Normalize rescales the weights to sum to 1. Negative weights count as
// zero; an all-zero set falls back to DefaultWeights.
func (w Weights) Normalize() Weights {
	w.DomainMatch = math.Max(0, w.DomainMatch)
	w.TLDRelevance = math.Max(0, w.TLDRelevance)
	w.SearchPosition = math.Max(0, w.SearchPosition)
	w.TitleMatch = math.Max(0, w.TitleMatch)

	sum := w.Sum()
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		DomainMatch:    w.DomainMatch / sum,
		TLDRelevance:   w.TLDRelevance / sum,
		SearchPosition: w.SearchPosition / sum,
		TitleMatch:     w.TitleMatch / sum,
	}
}

// ValidateWeights reports weights that Normalize would have to correct.
// Scoring still works with such weights; callers use this to warn.
func ValidateWeights(w Weights) error {
	var errs []string

	weights := map[string]float64{
		"domain_match":    w.DomainMatch,
		"tld_relevance":   w.TLDRelevance,
		"search_position": w.SearchPosition,
		"title_match":     w.TitleMatch,
	}
	for _, name := range []string{"domain_match", "tld_relevance", "search_position", "title_match"} {
		if weights[name] < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if w.Sum() <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: weight validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
