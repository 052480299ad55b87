package scorer

import (
	"strings"
	"sync"
)

type qualityKey struct {
	company string
	url     string
}

// QualityCache memoizes URL quality scores per (company, URL). Company
// names are compared case-insensitively. It is safe for concurrent use.
type QualityCache struct {
	analyzer *URLQualityAnalyzer
	mu       sync.RWMutex
	scores   map[qualityKey]float64
}

// NewQualityCache creates a cache in front of analyzer. A nil analyzer uses
// the defaults.
func NewQualityCache(analyzer *URLQualityAnalyzer) *QualityCache {
	if analyzer == nil {
		analyzer = NewURLQualityAnalyzer()
	}
	return &QualityCache{
		analyzer: analyzer,
		scores:   make(map[qualityKey]float64),
	}
}

// Score returns the cached score, computing it on first use.
func (c *QualityCache) Score(companyName, rawURL string) float64 {
	key := qualityKey{company: strings.ToLower(companyName), url: rawURL}

	c.mu.RLock()
	score, ok := c.scores[key]
	c.mu.RUnlock()
	if ok {
		return score
	}

	score = c.analyzer.Score(companyName, rawURL)
	c.mu.Lock()
	c.scores[key] = score
	c.mu.Unlock()
	return score
}

// IsHighQuality reports whether the cached score meets the analyzer's
// threshold.
func (c *QualityCache) IsHighQuality(companyName, rawURL string) bool {
	return c.Score(companyName, rawURL) >= c.analyzer.Threshold()
}

// Len returns the number of cached scores.
func (c *QualityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores)
}

// Clear drops every cached score.
func (c *QualityCache) Clear() {
	c.mu.Lock()
	c.scores = make(map[qualityKey]float64)
	c.mu.Unlock()
}
