package filter

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/company-sift/internal/domain"
	"github.com/sells-group/company-sift/internal/model"
)

// DefaultMinSuspicion is the lowest frequency reported as a suspected
// aggregator.
const DefaultMinSuspicion = 0.1

// SuspectedAggregator is a domain with elevated frequency that has not yet
// crossed the aggregator threshold.
type SuspectedAggregator struct {
	Domain    string   `json:"domain"`
	Count     int      `json:"count"`
	Frequency float64  `json:"frequency"`
	Companies []string `json:"companies"`
}

// Report summarizes filtering effectiveness.
type Report struct {
	StaticBlocklistSize        int     `json:"static_blocklist_size"`
	DynamicAggregatorsDetected int     `json:"dynamic_aggregators_detected"`
	TotalBlockedDomains        int     `json:"total_blocked_domains"`
	FrequencySummary           Summary `json:"frequency_summary"`
}

// EnhancedOption configures an EnhancedFilter.
type EnhancedOption func(*EnhancedFilter)

// WithAggregatorThreshold sets the frequency at which a domain is treated as
// an aggregator.
func WithAggregatorThreshold(threshold float64) EnhancedOption {
	return func(f *EnhancedFilter) {
		f.threshold = threshold
	}
}

// WithMinOccurrences sets the minimum appearances before a domain can be
// treated as an aggregator.
func WithMinOccurrences(n int) EnhancedOption {
	return func(f *EnhancedFilter) {
		f.minOccurrences = n
	}
}

// WithDynamicFiltering toggles frequency-based filtering. When disabled the
// tracker still records survivors so statistics stay available.
func WithDynamicFiltering(enabled bool) EnhancedOption {
	return func(f *EnhancedFilter) {
		f.dynamic = enabled
	}
}

// EnhancedFilter applies the static blocklist, feeds the survivors to the
// frequency tracker, then drops survivors from domains the tracker now
// considers aggregators. It is safe for concurrent use; the tracker must
// not be mutated elsewhere while the filter is in use.
type EnhancedFilter struct {
	mu             sync.Mutex
	static         *Blocklist
	tracker        *Tracker
	threshold      float64
	minOccurrences int
	dynamic        bool
}

// NewEnhancedFilter creates an EnhancedFilter. A nil blocklist or tracker is
// replaced by an empty one.
func NewEnhancedFilter(static *Blocklist, tracker *Tracker, opts ...EnhancedOption) *EnhancedFilter {
	if static == nil {
		static = NewBlocklist(nil)
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	f := &EnhancedFilter{
		static:         static,
		tracker:        tracker,
		threshold:      DefaultFrequencyThreshold,
		minOccurrences: DefaultMinOccurrences,
		dynamic:        true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Filter returns the results for companyName that survive both passes.
func (f *EnhancedFilter) Filter(companyName string, results []model.SearchResult) []model.SearchResult {
	kept, _ := f.FilterDetailed(companyName, results)
	return kept
}

// FilterDetailed is Filter plus a record of every dropped result and why.
func (f *EnhancedFilter) FilterDetailed(companyName string, results []model.SearchResult) ([]model.SearchResult, []model.FilteredResult) {
	var dropped []model.FilteredResult

	survivors := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if f.static.IsBlocked(r.URL) {
			dropped = append(dropped, model.FilteredResult{
				Result:       r,
				Reason:       model.ReasonStaticBlocklist,
				IsAggregator: true,
			})
			continue
		}
		survivors = append(survivors, r)
	}

	f.mu.Lock()
	f.tracker.Track(companyName, survivors)
	var aggregators map[string]bool
	if f.dynamic {
		aggregators = toSet(f.tracker.IdentifyAggregators(f.threshold, f.minOccurrences))
	}
	f.mu.Unlock()

	if len(aggregators) == 0 {
		return survivors, dropped
	}

	kept := make([]model.SearchResult, 0, len(survivors))
	for _, r := range survivors {
		d := domain.Normalize(r.URL)
		if aggregators[d] {
			zap.L().Debug("filter: dropping dynamic aggregator",
				zap.String("company", companyName),
				zap.String("domain", d),
			)
			dropped = append(dropped, model.FilteredResult{
				Result:       r,
				Reason:       model.ReasonDynamicAggregator,
				IsAggregator: true,
			})
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// SuspectedAggregators lists domains whose frequency lies in
// [minSuspicion, aggregator threshold), excluding statically blocked and
// confirmed aggregator domains, most frequent first.
func (f *EnhancedFilter) SuspectedAggregators(minSuspicion float64) []SuspectedAggregator {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []SuspectedAggregator{}
	if f.tracker.TotalSearches() == 0 {
		return out
	}
	confirmed := toSet(f.tracker.IdentifyAggregators(f.threshold, f.minOccurrences))
	for d := range f.tracker.counts {
		if confirmed[d] || f.static.blocksHost(d) {
			continue
		}
		freq := f.tracker.Frequency(d)
		if freq < minSuspicion || freq >= f.threshold {
			continue
		}
		out = append(out, SuspectedAggregator{
			Domain:    d,
			Count:     f.tracker.Count(d),
			Frequency: freq,
			Companies: f.tracker.companiesFor(d),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

// Aggregators returns the domains currently classified as aggregators
// under this filter's thresholds.
func (f *EnhancedFilter) Aggregators() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracker.IdentifyAggregators(f.threshold, f.minOccurrences)
}

// Report returns a summary of static and dynamic filtering.
func (f *EnhancedFilter) Report() Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	static := f.static.Len()
	dynamic := len(f.tracker.IdentifyAggregators(f.threshold, f.minOccurrences))
	return Report{
		StaticBlocklistSize:        static,
		DynamicAggregatorsDetected: dynamic,
		TotalBlockedDomains:        static + dynamic,
		FrequencySummary:           f.tracker.Summary(),
	}
}

// Snapshot exports the tracker state under the filter's lock.
func (f *EnhancedFilter) Snapshot() model.DomainState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracker.Snapshot()
}

// Restore replaces the tracker state under the filter's lock.
func (f *EnhancedFilter) Restore(state model.DomainState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracker.Restore(state)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
