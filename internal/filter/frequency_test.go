package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-sift/internal/model"
)

func TestTrackerEmpty(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	assert.Zero(t, tr.TotalSearches())
	assert.Zero(t, tr.Frequency("acme.com"))
	assert.Empty(t, tr.IdentifyAggregators(DefaultFrequencyThreshold, DefaultMinOccurrences))

	s := tr.Summary()
	assert.Zero(t, s.TotalSearches)
	assert.Zero(t, s.UniqueDomains)
	assert.Zero(t, s.AverageDomainsPerSearch)
}

func TestTrackerIdentifiesAggregator(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Track("ALPHA LTD", results("https://www.directory.com/alpha", "https://alpha.co.uk"))
	tr.Track("BETA LTD", results("https://directory.com/beta", "https://beta.co.uk"))
	tr.Track("GAMMA LTD", results("https://directory.com/gamma", "https://gamma.co.uk"))
	tr.Track("DELTA LTD", results("https://delta.co.uk"))

	assert.Equal(t, 4, tr.TotalSearches())
	assert.Equal(t, 3, tr.Count("directory.com"))
	assert.InDelta(t, 0.75, tr.Frequency("directory.com"), 1e-9)
	assert.Equal(t, []string{"directory.com"}, tr.IdentifyAggregators(0.3, 3))

	// Raising the occurrence floor hides it again.
	assert.Empty(t, tr.IdentifyAggregators(0.3, 4))
	// So does raising the frequency threshold.
	assert.Empty(t, tr.IdentifyAggregators(0.8, 3))
}

func TestTrackerMinOccurrencesGuardsSmallSamples(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Track("ALPHA LTD", results("https://directory.com/alpha"))
	tr.Track("BETA LTD", results("https://directory.com/beta"))

	assert.InDelta(t, 1.0, tr.Frequency("directory.com"), 1e-9)
	assert.Empty(t, tr.IdentifyAggregators(DefaultFrequencyThreshold, DefaultMinOccurrences))
}

func TestTrackerCountsVolumeButCompaniesOnce(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Track("ALPHA LTD", results("https://directory.com/a", "https://directory.com/b", "not-a-url"))

	stats := tr.DomainStats("directory.com")
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, []string{"ALPHA LTD"}, stats.Companies)
	assert.InDelta(t, 2.0, stats.Frequency, 1e-9)
	assert.False(t, stats.IsAggregator)
	assert.Equal(t, 1, tr.Summary().UniqueDomains)
}

func TestTrackerSummary(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	for _, name := range []string{"A", "B", "C"} {
		tr.Track(name, results("https://directory.com/"+name, "https://"+name+".com"))
	}

	s := tr.Summary()
	assert.Equal(t, 3, s.TotalSearches)
	assert.Equal(t, 4, s.UniqueDomains)
	assert.Equal(t, 1, s.IdentifiedAggregators)
	assert.Equal(t, []string{"directory.com"}, s.AggregatorDomains)
	assert.InDelta(t, 4.0/3.0, s.AverageDomainsPerSearch, 1e-9)

	stats := tr.DomainStats("directory.com")
	assert.True(t, stats.IsAggregator)
	assert.Equal(t, []string{"A", "B", "C"}, stats.Companies)
}

func TestTrackerReset(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Track("A", results("https://directory.com/a"))
	tr.Reset()

	assert.Zero(t, tr.TotalSearches())
	assert.Zero(t, tr.Count("directory.com"))
	assert.Empty(t, tr.DomainStats("directory.com").Companies)
}

func TestTrackerSnapshotRestore(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Track("B", results("https://directory.com/b"))
	tr.Track("A", results("https://directory.com/a", "https://a.com"))

	state := tr.Snapshot()
	assert.Equal(t, 2, state.TotalSearches)
	assert.Equal(t, map[string]int{"directory.com": 2, "a.com": 1}, state.DomainCounts)
	assert.Equal(t, []string{"A", "B"}, state.CompanyDomains["directory.com"])

	restored := NewTracker()
	restored.Restore(state)
	assert.Equal(t, tr.Summary(), restored.Summary())
	assert.Equal(t, tr.DomainStats("directory.com"), restored.DomainStats("directory.com"))

	// Restored state is a copy, not an alias.
	state.DomainCounts["directory.com"] = 99
	assert.Equal(t, 2, restored.Count("directory.com"))
}

func TestTrackerBulkSetters(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.SetDomainCounts(map[string]int{"directory.com": 6, "acme.com": 1})
	tr.SetCompanyDomains(map[string][]string{"directory.com": {"A", "B", "A"}})
	tr.SetTotalSearches(10)

	assert.InDelta(t, 0.6, tr.Frequency("directory.com"), 1e-9)
	assert.Equal(t, []string{"directory.com"}, tr.IdentifyAggregators(DefaultFrequencyThreshold, DefaultMinOccurrences))
	assert.Equal(t, []string{"A", "B"}, tr.DomainStats("directory.com").Companies)

	tr.SetTotalSearches(-5)
	assert.Zero(t, tr.TotalSearches())
	require.Empty(t, tr.IdentifyAggregators(DefaultFrequencyThreshold, DefaultMinOccurrences))
}

func TestTrackerSnapshotEmpty(t *testing.T) {
	t.Parallel()

	state := NewTracker().Snapshot()
	assert.Equal(t, model.DomainState{
		DomainCounts:   map[string]int{},
		CompanyDomains: map[string][]string{},
	}, state)
}
