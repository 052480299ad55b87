package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		company string
		host    string
		want    float64
	}{
		{name: "brand with uk suffix", company: "ACME SOFTWARE LIMITED", host: "acmesoftware.co.uk", want: 0.95},
		{name: "subdomain collapses", company: "ACME SOFTWARE LIMITED", host: "shop.acmesoftware.co.uk", want: 0.95},
		{name: "single word exact", company: "ACME", host: "acme.com", want: 1.0},
		{name: "exact misspelt brand", company: "SENTINALL LIMITED", host: "sentinall.co.uk", want: 1.0},
		{name: "near miss demoted", company: "SENTINALL LIMITED", host: "sentinel.co.uk", want: 0.5},
		{name: "short name acronym", company: "MGS LIMITED", host: "mgstech.in", want: 0.95},
		{name: "partial brand penalized", company: "ACME WIDGETS LTD", host: "acme.com", want: 0.28},
		{name: "initials only", company: "ALPHA BETA LIMITED", host: "ab-services.com", want: 0.2},
		{name: "unrelated", company: "ACME SOFTWARE LIMITED", host: "random-website.com", want: 0},
		{name: "empty host", company: "ACME", host: "", want: 0},
		{name: "empty name", company: "", host: "acme.com", want: 0},
		{name: "punctuation name", company: "&&&", host: "acme.com", want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, domainMatch(tc.company, tc.host), 1e-9)
		})
	}
}

func TestDomainMatchInRange(t *testing.T) {
	t.Parallel()

	names := []string{"A", "AB LTD", "THE CO", "Café Rouge Ltd", "123 456", "X-Y-Z GROUP"}
	hosts := []string{"a.com", "ab.co.uk", "cafe-rouge.co.uk", "123.io", "xyz.org.uk", "localhost"}
	for _, n := range names {
		for _, h := range hosts {
			got := domainMatch(n, h)
			assert.GreaterOrEqual(t, got, 0.0, "%s %s", n, h)
			assert.LessOrEqual(t, got, 1.0, "%s %s", n, h)
		}
	}
}

func TestStripLegalSuffix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ACME SOFTWARE", stripLegalSuffix("ACME SOFTWARE LIMITED"))
	assert.Equal(t, "Acme", stripLegalSuffix("Acme Ltd."))
	assert.Equal(t, "ACME HOLDINGS", stripLegalSuffix("ACME HOLDINGS GROUP"))
	assert.Equal(t, "LIMITED", stripLegalSuffix("LIMITED"))
	assert.Equal(t, "ACME LIMITED HOLDINGS", stripLegalSuffix("ACME LIMITED HOLDINGS"))
}

func TestApproxEditDistance(t *testing.T) {
	t.Parallel()

	dist, pct := approxEditDistance([]rune("sentinall"), []rune("sentinelcouk"))
	assert.InDelta(t, 4.0, dist, 1e-9)
	assert.InDelta(t, 7.0/12.0, pct, 1e-9)

	dist, pct = approxEditDistance([]rune("acme"), []rune("acme"))
	assert.Zero(t, dist)
	assert.InDelta(t, 1.0, pct, 1e-9)

	dist, pct = approxEditDistance(nil, nil)
	assert.Zero(t, dist)
	assert.Zero(t, pct)
}

func TestIsUKPostcode(t *testing.T) {
	t.Parallel()

	for _, pc := range []string{"SW1A 1AA", "sw1a1aa", " M1 1AE ", "EC1A 1BB", "B33 8TH", "CR2 6XH", "DN55 1PT"} {
		assert.True(t, IsUKPostcode(pc), pc)
	}
	for _, pc := range []string{"", "12345", "SW1A 1A", "90210-1234", "SW1A  1AA"} {
		assert.False(t, IsUKPostcode(pc), pc)
	}
}

func TestTLDRelevance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		uk   bool
		want float64
	}{
		{host: "acme.co.uk", uk: true, want: 1.0},
		{host: "acme.co.uk", uk: false, want: 0.8},
		{host: "acme.me.uk", uk: true, want: 1.0},
		{host: "acme.in", uk: true, want: 0.05},
		{host: "acme.in", uk: false, want: 0.2},
		{host: "acme.de", uk: true, want: 0.1},
		{host: "acme.sg", uk: true, want: 0.1},
		{host: "acme.de", uk: false, want: 0.2},
		{host: "acme.com", uk: true, want: 0.5},
		{host: "acme.com", uk: false, want: 0.7},
		{host: "acme.io", uk: true, want: 0.5},
		{host: "acme.xyz", uk: true, want: 0.2},
		{host: "", uk: true, want: 0},
	}

	for _, tc := range tests {
		assert.InDelta(t, tc.want, tldRelevance(tc.host, tc.uk), 1e-9, "%s uk=%v", tc.host, tc.uk)
	}
}

func TestPositionScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pos  int
		want float64
	}{
		{-1, 0}, {0, 0}, {1, 1.0}, {2, 0.8}, {3, 0.6}, {5, 0.6},
		{6, 0.4}, {10, 0.4}, {11, 0.15}, {13, 0.05}, {14, 0}, {50, 0},
	}

	for _, tc := range tests {
		assert.InDelta(t, tc.want, positionScore(tc.pos), 1e-9, "position %d", tc.pos)
	}
}

func TestTitleMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		company string
		title   string
		want    float64
	}{
		{name: "suffix differs", company: "ACME SOFTWARE LIMITED", title: "Acme Software Ltd", want: 0.5},
		{name: "verbatim name boosted", company: "ACME SOFTWARE LIMITED", title: "Acme Software Limited - Home", want: 1.0},
		{name: "one shared word", company: "ACME SOFTWARE LIMITED", title: "Page about Acme", want: 0.2},
		{name: "accents folded", company: "CAFÉ ROUGE LTD", title: "Cafe Rouge | Restaurants", want: 0.5},
		{name: "empty title", company: "ACME", title: "", want: 0},
		{name: "blank title", company: "ACME", title: "   ", want: 0},
		{name: "only stop words", company: "THE A TO", title: "The A To Z", want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, titleMatch(tc.company, tc.title), 1e-9)
		})
	}
}
