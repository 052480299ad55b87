package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-sift/internal/model"
)

func results(urls ...string) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(urls))
	for i, u := range urls {
		out = append(out, model.SearchResult{URL: u, Position: i + 1})
	}
	return out
}

func urlsOf(rs []model.SearchResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.URL)
	}
	return out
}

func TestBlocklistIsBlocked(t *testing.T) {
	t.Parallel()

	b := NewBlocklist(DefaultBlocklist)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "exact domain", url: "https://endole.co.uk/company/123", want: true},
		{name: "www prefix", url: "https://www.companycheck.co.uk/company/123", want: true},
		{name: "subdomain", url: "https://find-and-update.companieshouse.gov.uk/x", want: true},
		{name: "upper case", url: "HTTPS://WWW.GLOBALDATABASE.COM/x", want: true},
		{name: "with port", url: "https://endole.co.uk:443/x", want: true},
		{name: "lookalike suffix", url: "https://notendole.co.uk", want: false},
		{name: "genuine site", url: "https://acmesoftware.co.uk", want: false},
		{name: "empty", url: "", want: false},
		{name: "malformed", url: "://bad", want: false},
		{name: "no host", url: "not-a-url", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, b.IsBlocked(tc.url))
		})
	}
}

func TestBlocklistFilter(t *testing.T) {
	t.Parallel()

	b := NewBlocklist([]string{" Endole.co.uk ", "", "www.globaldatabase.com"})
	in := results(
		"https://acme.co.uk",
		"https://endole.co.uk/acme",
		"https://suite.endole.co.uk/acme",
		"https://globaldatabase.com/acme",
		"not-a-url",
	)

	got := b.Filter(in)
	assert.Equal(t, []string{"https://acme.co.uk", "not-a-url"}, urlsOf(got))

	// Filtering is idempotent.
	assert.Equal(t, got, b.Filter(got))
}

func TestBlocklistFilterEmpty(t *testing.T) {
	t.Parallel()

	b := NewBlocklist(DefaultBlocklist)
	got := b.Filter(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEmptyBlocklistIsIdentity(t *testing.T) {
	t.Parallel()

	b := NewBlocklist(nil)
	in := results("https://endole.co.uk/a", "https://acme.com")
	assert.Equal(t, in, b.Filter(in))
	assert.Zero(t, b.Len())
}

func TestBlocklistUpdate(t *testing.T) {
	t.Parallel()

	b := NewBlocklist([]string{"endole.co.uk"})
	assert.True(t, b.IsBlocked("https://endole.co.uk"))

	b.Update([]string{"bizdb.co.uk", "BIZDB.co.uk", "  "})
	assert.False(t, b.IsBlocked("https://endole.co.uk"))
	assert.True(t, b.IsBlocked("https://www.bizdb.co.uk/x"))
	assert.Equal(t, []string{"bizdb.co.uk"}, b.Domains())
}
