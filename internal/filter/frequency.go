package filter

import (
	"sort"

	"github.com/sells-group/company-sift/internal/domain"
	"github.com/sells-group/company-sift/internal/model"
)

const (
	// DefaultFrequencyThreshold is the share of searches a domain must
	// appear in before it is treated as an aggregator.
	DefaultFrequencyThreshold = 0.3
	// DefaultMinOccurrences guards against small-sample false positives.
	DefaultMinOccurrences = 3
)

// DomainStats describes one tracked domain.
type DomainStats struct {
	Domain       string   `json:"domain"`
	Count        int      `json:"count"`
	Frequency    float64  `json:"frequency"`
	Companies    []string `json:"companies"`
	IsAggregator bool     `json:"is_aggregator"`
}

// Summary describes the tracker as a whole.
type Summary struct {
	TotalSearches           int      `json:"total_searches"`
	UniqueDomains           int      `json:"unique_domains"`
	IdentifiedAggregators   int      `json:"identified_aggregators"`
	AggregatorDomains       []string `json:"aggregator_domains"`
	AverageDomainsPerSearch float64  `json:"average_domains_per_search"`
}

// Tracker counts domain appearances across searches so that sites which
// show up for many unrelated companies can be identified as aggregators.
//
// Tracker is not safe for concurrent use.
type Tracker struct {
	counts        map[string]int
	companies     map[string]map[string]struct{}
	totalSearches int
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		counts:    make(map[string]int),
		companies: make(map[string]map[string]struct{}),
	}
}

// Track records one search for companyName. Every result counts towards its
// domain's volume; the company association is recorded once per domain.
// Results without a parseable host are ignored.
func (t *Tracker) Track(companyName string, results []model.SearchResult) {
	t.totalSearches++
	for _, r := range results {
		d := domain.Normalize(r.URL)
		if d == "" {
			continue
		}
		t.counts[d]++
		set, ok := t.companies[d]
		if !ok {
			set = make(map[string]struct{})
			t.companies[d] = set
		}
		set[companyName] = struct{}{}
	}
}

// TotalSearches returns the number of tracked searches.
func (t *Tracker) TotalSearches() int {
	return t.totalSearches
}

// Count returns how many times d has been seen.
func (t *Tracker) Count(d string) int {
	return t.counts[d]
}

// Frequency returns the number of appearances of d per search, or 0 before
// any search has been tracked.
func (t *Tracker) Frequency(d string) float64 {
	if t.totalSearches == 0 {
		return 0
	}
	return float64(t.counts[d]) / float64(t.totalSearches)
}

// IdentifyAggregators returns, sorted, the domains seen at least
// minOccurrences times whose frequency is at least threshold.
func (t *Tracker) IdentifyAggregators(threshold float64, minOccurrences int) []string {
	out := []string{}
	if t.totalSearches == 0 {
		return out
	}
	for d := range t.counts {
		if t.isAggregator(d, threshold, minOccurrences) {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func (t *Tracker) isAggregator(d string, threshold float64, minOccurrences int) bool {
	return t.counts[d] >= minOccurrences && t.Frequency(d) >= threshold
}

// DomainStats returns diagnostics for d using the default thresholds.
func (t *Tracker) DomainStats(d string) DomainStats {
	return DomainStats{
		Domain:       d,
		Count:        t.counts[d],
		Frequency:    t.Frequency(d),
		Companies:    t.companiesFor(d),
		IsAggregator: t.isAggregator(d, DefaultFrequencyThreshold, DefaultMinOccurrences),
	}
}

func (t *Tracker) companiesFor(d string) []string {
	set := t.companies[d]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Summary returns aggregate statistics using the default thresholds.
func (t *Tracker) Summary() Summary {
	aggs := t.IdentifyAggregators(DefaultFrequencyThreshold, DefaultMinOccurrences)
	s := Summary{
		TotalSearches:         t.totalSearches,
		UniqueDomains:         len(t.counts),
		IdentifiedAggregators: len(aggs),
		AggregatorDomains:     aggs,
	}
	if t.totalSearches > 0 {
		s.AverageDomainsPerSearch = float64(len(t.counts)) / float64(t.totalSearches)
	}
	return s
}

// Reset clears all tracked state.
func (t *Tracker) Reset() {
	t.counts = make(map[string]int)
	t.companies = make(map[string]map[string]struct{})
	t.totalSearches = 0
}

// SetDomainCounts replaces the per-domain counts.
func (t *Tracker) SetDomainCounts(counts map[string]int) {
	t.counts = make(map[string]int, len(counts))
	for d, n := range counts {
		t.counts[d] = n
	}
}

// SetCompanyDomains replaces the domain to company associations.
func (t *Tracker) SetCompanyDomains(companies map[string][]string) {
	t.companies = make(map[string]map[string]struct{}, len(companies))
	for d, names := range companies {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		t.companies[d] = set
	}
}

// SetTotalSearches replaces the search counter.
func (t *Tracker) SetTotalSearches(n int) {
	if n < 0 {
		n = 0
	}
	t.totalSearches = n
}

// Snapshot exports the tracker state for persistence.
func (t *Tracker) Snapshot() model.DomainState {
	state := model.DomainState{
		DomainCounts:   make(map[string]int, len(t.counts)),
		CompanyDomains: make(map[string][]string, len(t.companies)),
		TotalSearches:  t.totalSearches,
	}
	for d, n := range t.counts {
		state.DomainCounts[d] = n
	}
	for d := range t.companies {
		state.CompanyDomains[d] = t.companiesFor(d)
	}
	return state
}

// Restore replaces the tracker state with a previously saved snapshot.
func (t *Tracker) Restore(state model.DomainState) {
	t.SetDomainCounts(state.DomainCounts)
	t.SetCompanyDomains(state.CompanyDomains)
	t.SetTotalSearches(state.TotalSearches)
}
