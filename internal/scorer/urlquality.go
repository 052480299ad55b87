package scorer

import (
	"math"
	"net/url"
	"strings"

	"github.com/sells-group/company-sift/internal/domain"
)

// DefaultQualityThreshold is the URL quality score at or above which a URL
// is considered high quality.
const DefaultQualityThreshold = 60.0

// Default pattern lists for URL quality analysis.
var (
	DefaultAggregatorKeywords = []string{
		"company", "business", "data", "check", "directory",
		"search", "info", "profile", "register", "database",
		"browse", "insight", "report", "detail", "find",
		"verify", "lookup",
	}
	DefaultAggregatorPaths = []string{
		"/company/", "/companies/", "/business/", "/profile/",
		"/search/", "/insight/", "/report/", "/detail.php",
		"/browse/", "/company-profiles", "/directory/",
		"/company_number", "/companyname", "/comp/",
	}
	DefaultGenuinePaths     = []string{"/about", "/company", "/about-us", "/contact", "/team"}
	DefaultIdentifierParams = []string{"company", "comp", "business", "id", "number"}
	DefaultTrustedTLDs      = []string{"com", "uk", "org", "net", "io", "ai"}
)

// QualityBreakdown explains a URL quality score.
type QualityBreakdown struct {
	URL           string  `json:"url"`
	Domain        string  `json:"domain"`
	DomainScore   float64 `json:"domain_score"`
	PathScore     float64 `json:"path_score"`
	ParamScore    float64 `json:"param_score"`
	TLDScore      float64 `json:"tld_score"`
	FinalScore    float64 `json:"final_score"`
	IsHighQuality bool    `json:"is_high_quality"`
}

// QualityOption configures a URLQualityAnalyzer.
type QualityOption func(*URLQualityAnalyzer)

// WithQualityThreshold sets the high-quality cut-off.
func WithQualityThreshold(threshold float64) QualityOption {
	return func(a *URLQualityAnalyzer) {
		a.threshold = threshold
	}
}

// WithAggregatorKeywords replaces the domain keywords that suggest a
// directory site.
func WithAggregatorKeywords(keywords []string) QualityOption {
	return func(a *URLQualityAnalyzer) {
		a.keywords = lowerAll(keywords)
	}
}

// WithAggregatorPaths replaces the path fragments typical of directory
// listings.
func WithAggregatorPaths(paths []string) QualityOption {
	return func(a *URLQualityAnalyzer) {
		a.aggregatorPaths = lowerAll(paths)
	}
}

// WithGenuinePaths replaces the path fragments typical of a company's own site.
func WithGenuinePaths(paths []string) QualityOption {
	return func(a *URLQualityAnalyzer) {
		a.genuinePaths = lowerAll(paths)
	}
}

// WithIdentifierParams replaces the query fragments that look like record
// identifiers.
func WithIdentifierParams(params []string) QualityOption {
	return func(a *URLQualityAnalyzer) {
		a.identifierParams = lowerAll(params)
	}
}

// WithTrustedTLDs replaces the TLDs that score full marks.
func WithTrustedTLDs(tlds []string) QualityOption {
	return func(a *URLQualityAnalyzer) {
		a.trustedTLDs = toSet(lowerAll(tlds))
	}
}

// URLQualityAnalyzer scores a URL's structure 0-100 for how much it looks
// like a company's own site rather than a directory listing. It is
// independent of search rank and page title.
type URLQualityAnalyzer struct {
	threshold        float64
	keywords         []string
	aggregatorPaths  []string
	genuinePaths     []string
	identifierParams []string
	trustedTLDs      map[string]bool
}

// NewURLQualityAnalyzer creates an analyzer with the default pattern lists.
func NewURLQualityAnalyzer(opts ...QualityOption) *URLQualityAnalyzer {
	a := &URLQualityAnalyzer{
		threshold:        DefaultQualityThreshold,
		keywords:         DefaultAggregatorKeywords,
		aggregatorPaths:  DefaultAggregatorPaths,
		genuinePaths:     DefaultGenuinePaths,
		identifierParams: DefaultIdentifierParams,
		trustedTLDs:      toSet(DefaultTrustedTLDs),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Threshold returns the high-quality cut-off.
func (a *URLQualityAnalyzer) Threshold() float64 {
	return a.threshold
}

// Score returns the weighted quality score rounded to one decimal. A URL
// that cannot be parsed scores a neutral 50.
func (a *URLQualityAnalyzer) Score(companyName, rawURL string) float64 {
	b, ok := a.analyze(companyName, rawURL)
	if !ok {
		return 50.0
	}
	return b.FinalScore
}

// IsHighQuality reports whether the URL scores at or above the threshold.
func (a *URLQualityAnalyzer) IsHighQuality(companyName, rawURL string) bool {
	return a.Score(companyName, rawURL) >= a.threshold
}

// Breakdown returns the per-component scores for diagnostics.
func (a *URLQualityAnalyzer) Breakdown(companyName, rawURL string) QualityBreakdown {
	b, ok := a.analyze(companyName, rawURL)
	if !ok {
		b = QualityBreakdown{URL: rawURL, FinalScore: 50.0}
	}
	b.IsHighQuality = b.FinalScore >= a.threshold
	return b
}

func (a *URLQualityAnalyzer) analyze(companyName, rawURL string) (QualityBreakdown, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return QualityBreakdown{}, false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	b := QualityBreakdown{
		URL:         rawURL,
		Domain:      host,
		DomainScore: a.domainScore(companyName, host),
		PathScore:   a.pathScore(u.Path),
		ParamScore:  a.paramScore(u.RawQuery),
		TLDScore:    a.tldScore(host),
	}
	final := b.DomainScore*0.4 + b.PathScore*0.3 + b.ParamScore*0.2 + b.TLDScore*0.1
	b.FinalScore = math.Round(final*10) / 10
	return b, true
}

func (a *URLQualityAnalyzer) domainScore(companyName, host string) float64 {
	score := 100.0
	name := strings.ToLower(foldAccents(companyName))
	nameWords := letterRuns(name)

	nameInDomain := anyContained(nameWords, host)
	if !nameInDomain {
		score -= 50
	}
	for _, kw := range a.keywords {
		if strings.Contains(host, kw) {
			score -= 20
		}
	}
	if strings.HasPrefix(host, strings.ReplaceAll(name, " ", "")) {
		score += 10
	} else if nameInDomain {
		score += 5
	}
	return clamp100(score)
}

func (a *URLQualityAnalyzer) pathScore(path string) float64 {
	score := 100.0
	path = strings.ToLower(path)
	if containsAny(path, a.aggregatorPaths) {
		score -= 30
	}
	if containsAny(path, a.genuinePaths) {
		score += 10
	}
	return clamp100(score)
}

func (a *URLQualityAnalyzer) paramScore(query string) float64 {
	if query == "" {
		return 100
	}
	if containsAny(strings.ToLower(query), a.identifierParams) {
		return 60
	}
	return 100
}

func (a *URLQualityAnalyzer) tldScore(host string) float64 {
	tld := domain.LastLabel(host)
	switch {
	case a.trustedTLDs[tld]:
		return 100
	case len(tld) <= 3:
		return 90
	default:
		return 70
	}
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
