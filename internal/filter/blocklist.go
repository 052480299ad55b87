// Package filter removes aggregator and directory sites from search results,
// combining a curated blocklist with frequency-based detection.
package filter

import (
	"sort"
	"strings"
	"sync"

	"github.com/sells-group/company-sift/internal/domain"
	"github.com/sells-group/company-sift/internal/model"
)

// DefaultBlocklist lists the aggregator domains blocked when no blocklist is
// configured.
var DefaultBlocklist = []string{
	"companycheck.co.uk",
	"globaldatabase.com",
	"companieshouse.gov.uk",
	"endole.co.uk",
}

// Blocklist drops results whose domain equals, or is a subdomain of, a
// blocked entry. It is safe for concurrent use.
type Blocklist struct {
	mu      sync.RWMutex
	domains []string
}

// NewBlocklist creates a Blocklist from the given domains.
func NewBlocklist(domains []string) *Blocklist {
	b := &Blocklist{}
	b.Update(domains)
	return b
}

// Update replaces the blocked domains.
func (b *Blocklist) Update(domains []string) {
	cleaned := cleanDomains(domains)
	b.mu.Lock()
	b.domains = cleaned
	b.mu.Unlock()
}

// Domains returns a sorted copy of the blocked domains.
func (b *Blocklist) Domains() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.domains))
	copy(out, b.domains)
	sort.Strings(out)
	return out
}

// Len returns the number of blocked domains.
func (b *Blocklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.domains)
}

// Filter returns the results that are not blocked, preserving order.
func (b *Blocklist) Filter(results []model.SearchResult) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if !b.IsBlocked(r.URL) {
			out = append(out, r)
		}
	}
	return out
}

// IsBlocked reports whether rawURL belongs to a blocked domain. URLs without
// a parseable host are never blocked.
func (b *Blocklist) IsBlocked(rawURL string) bool {
	return b.blocksHost(domain.Normalize(rawURL))
}

func (b *Blocklist) blocksHost(host string) bool {
	if host == "" {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, d := range b.domains {
		if domain.MatchesSuffix(host, d) {
			return true
		}
	}
	return false
}

func cleanDomains(domains []string) []string {
	seen := make(map[string]bool, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
