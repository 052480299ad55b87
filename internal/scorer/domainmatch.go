package scorer

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/company-sift/internal/domain"
)

// legalSuffixes are stripped from the end of multi-word company names before
// comparing them with domains.
var legalSuffixes = map[string]bool{
	"LIMITED": true,
	"LTD":     true,
	"PLC":     true,
	"LLC":     true,
	"INC":     true,
	"CORP":    true,
	"CO":      true,
	"GROUP":   true,
}

// stripLegalSuffix drops one trailing legal-entity suffix from a name with
// more than one word.
func stripLegalSuffix(name string) string {
	ws := words(name)
	if len(ws) > 1 && legalSuffixes[strings.ToUpper(ws[len(ws)-1])] {
		return strings.Join(ws[:len(ws)-1], " ")
	}
	return name
}

// domainMatch scores in [0,1] how well host's registrable domain matches the
// company name. Each heuristic can only raise the running ratio, except the
// edit-distance checks that demote suspicious near-misses such as
// "SENTINALL" against sentinel.co.uk.
func domainMatch(companyName, host string) float64 {
	reg := domain.Registrable(host)
	if reg == "" {
		return 0
	}

	nameWords := words(strings.ToLower(stripLegalSuffix(companyName)))
	tokens := uniqueInOrder(nameWords)
	if len(tokens) == 0 {
		return 0
	}

	// Token overlap against the domain's own words.
	domainWords := make(map[string]bool)
	for _, w := range words(reg) {
		if utf8.RuneCountInString(w) > 2 {
			domainWords[w] = true
		}
	}
	matches := 0
	for _, t := range tokens {
		if domainWords[t] {
			matches++
		}
	}
	ratio := float64(matches) / float64(len(tokens))
	if strings.HasPrefix(reg, tokens[0]) {
		ratio = math.Min(1, ratio+0.2)
	}

	company := alnum(strings.Join(nameWords, ""))
	dom := alnum(reg)
	if company == "" || dom == "" {
		return ratio
	}
	cr, dr := []rune(company), []rune(dom)

	// Containment, word presence and loose prefix checks.
	switch {
	case strings.Contains(dom, company) || strings.Contains(company, dom):
		if len(cr) != len(dr) && editRatio(cr, dr) > 0.2 {
			ratio = math.Max(ratio, 0.6)
		} else {
			ratio = math.Max(ratio, 0.9)
		}
	case anyContained(tokens, dom):
		ratio = math.Max(ratio, 0.7)
	case strings.HasPrefix(dom, runePrefix(cr, 4)) || strings.HasPrefix(company, runePrefix(dr, 4)):
		ratio = math.Max(ratio, 0.5)
	}

	// Prefix match ("mgs" against "mgstech").
	if strings.HasPrefix(dom, runePrefix(cr, 4)) {
		if len(cr) != len(dr) && editRatio(cr, dr) > 0.2 {
			ratio = math.Max(ratio, 0.3)
		} else {
			ratio = math.Max(ratio, 0.8)
		}
	}

	// Hyphen-insensitive containment ("mgs-tech" against "mgstech").
	domNoHyphen := strings.ReplaceAll(dom, "-", "")
	companyNoHyphen := strings.ReplaceAll(company, "-", "")
	if strings.Contains(domNoHyphen, companyNoHyphen) || strings.Contains(companyNoHyphen, domNoHyphen) {
		ratio = math.Max(ratio, 0.95)
	}

	// Short names treated as acronyms.
	if len(cr) <= 4 && strings.Contains(dom, company) {
		ratio = math.Max(ratio, 0.9)
	}

	// Initialisms, damped when the two strings share few characters.
	if len(tokens) >= 2 {
		initials := initialsOf(tokens)
		if utf8.RuneCountInString(initials) >= 2 && strings.Contains(dom, initials) {
			score := 0.5
			sim := charOverlap(cr, dr)
			if sim < 0.4 {
				score = math.Max(0.2, score*sim*1.5)
			}
			ratio = math.Max(ratio, score)
		}
	}

	// Ambiguous band: let the edit distance decide.
	if ratio >= 0.5 && ratio <= 0.75 {
		dist, matchPct := approxEditDistance(cr, dr)
		rel := dist / float64(max(len(cr), len(dr)))
		switch {
		case rel > 0.5:
			penalty := math.Min(0.6, rel*1.5)
			ratio = math.Max(0.15, ratio*(1-penalty))
		case rel < 0.1 && matchPct > 0.8:
			ratio = math.Min(0.95, ratio*1.1)
		}
	}

	return ratio
}

// approxEditDistance is a cheap stand-in for Levenshtein distance: the
// length difference plus half the positional mismatches of a against b.
// matchPct is the share of positionally equal characters.
func approxEditDistance(a, b []rune) (dist, matchPct float64) {
	matches := 0
	for i := 0; i < min(len(a), len(b)); i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	dist = float64(diff) + float64(len(a)-matches)*0.5
	if maxLen := max(len(a), len(b)); maxLen > 0 {
		matchPct = float64(matches) / float64(maxLen)
	}
	return dist, matchPct
}

func editRatio(a, b []rune) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0
	}
	dist, _ := approxEditDistance(a, b)
	return dist / float64(maxLen)
}

func runePrefix(r []rune, n int) string {
	if len(r) < n {
		n = len(r)
	}
	return string(r[:n])
}

func anyContained(tokens []string, s string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func initialsOf(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		r, _ := utf8.DecodeRuneInString(t)
		b.WriteRune(r)
	}
	return b.String()
}

// charOverlap is the number of distinct characters shared by a and b over
// the longer length.
func charOverlap(a, b []rune) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0
	}
	inA := make(map[rune]bool, len(a))
	for _, r := range a {
		inA[r] = true
	}
	shared := make(map[rune]bool)
	for _, r := range b {
		if inA[r] {
			shared[r] = true
		}
	}
	return float64(len(shared)) / float64(maxLen)
}
