package scorer

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var ukPostcodePattern = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]? ?\d[A-Z]{2}$`)

// IsUKPostcode reports whether postcode has a UK shape (A9 9AA, AA9A 9AA, ...).
func IsUKPostcode(postcode string) bool {
	return ukPostcodePattern.MatchString(strings.ToUpper(strings.TrimSpace(postcode)))
}

var (
	ukTLDs      = []string{".co.uk", ".uk", ".org.uk", ".me.uk", ".net.uk"}
	foreignTLDs = []string{".us", ".ca", ".au", ".de", ".fr", ".jp", ".cn", ".ae", ".sg"}
	genericTLDs = []string{".com", ".org", ".net", ".io", ".biz"}
)

// tldRelevance scores how plausible host's TLD is for the company. For UK
// companies, foreign country codes are near-disqualifying.
func tldRelevance(host string, ukCompany bool) float64 {
	if host == "" {
		return 0
	}
	if hasAnySuffix(host, ukTLDs) {
		if ukCompany {
			return 1.0
		}
		return 0.8
	}
	if ukCompany {
		if strings.HasSuffix(host, ".in") {
			return 0.05
		}
		if hasAnySuffix(host, foreignTLDs) {
			return 0.1
		}
	}
	if hasAnySuffix(host, genericTLDs) {
		if ukCompany {
			return 0.5
		}
		return 0.7
	}
	return 0.2
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// positionScore decays gently through the top ten results.
func positionScore(position int) float64 {
	switch {
	case position <= 0:
		return 0
	case position == 1:
		return 1.0
	case position == 2:
		return 0.8
	case position <= 5:
		return 0.6
	case position <= 10:
		return 0.4
	default:
		return math.Max(0, 0.7-float64(position)*0.05)
	}
}

var stopWords = map[string]bool{
	"the": true, "and": true, "of": true, "for": true, "a": true,
	"an": true, "in": true, "on": true, "at": true, "to": true,
}

func contentWords(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if !stopWords[t] && utf8.RuneCountInString(t) > 2 {
			set[t] = true
		}
	}
	return set
}

// titleMatch is the Jaccard similarity of the content words in the company
// name and page title, boosted by 0.3 when the whole name appears verbatim.
func titleMatch(companyName, title string) float64 {
	if strings.TrimSpace(title) == "" {
		return 0
	}
	nameTokens := words(strings.ToLower(companyName))
	titleTokens := words(strings.ToLower(title))

	nameSet := contentWords(nameTokens)
	if len(nameSet) == 0 {
		return 0
	}
	titleSet := contentWords(titleTokens)

	inter := 0
	for w := range nameSet {
		if titleSet[w] {
			inter++
		}
	}
	union := len(nameSet) + len(titleSet) - inter
	sim := float64(inter) / float64(union)

	if strings.Contains(strings.Join(titleTokens, " "), strings.Join(nameTokens, " ")) {
		sim = math.Min(1, sim+0.3)
	}
	return sim
}
