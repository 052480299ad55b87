// Package domain normalizes URLs to the host form every filter and scorer
// compares against.
package domain

import (
	"net/url"
	"strings"
)

// ukSecondLevel lists the UK second-level zones whose registrable domain
// spans three labels (acme.co.uk rather than co.uk).
var ukSecondLevel = map[string]bool{
	"co":  true,
	"com": true,
	"org": true,
	"net": true,
}

// Normalize returns the lower-cased host of rawURL with any leading "www."
// and port removed. Empty or unparseable input returns "".
func Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return cleanHost(u.Hostname())
}

// Host is like Normalize but keeps working for scheme-less input such as
// "acme.co.uk/about", which url.Parse treats as a path.
func Host(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return Normalize(raw)
}

func cleanHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return strings.TrimPrefix(host, "www.")
}

// Registrable collapses a host to its registrable unit: the last three labels
// under a UK second-level zone (shop.acme.co.uk -> acme.co.uk), otherwise the
// last two (blog.acme.com -> acme.com).
func Registrable(host string) string {
	host = strings.Trim(strings.ToLower(host), ".")
	if host == "" {
		return ""
	}
	labels := strings.Split(host, ".")
	n := len(labels)
	if n <= 2 {
		return host
	}
	if labels[n-1] == "uk" && ukSecondLevel[labels[n-2]] {
		return strings.Join(labels[n-3:], ".")
	}
	return strings.Join(labels[n-2:], ".")
}

// LastLabel returns the right-most label of host.
func LastLabel(host string) string {
	host = strings.TrimSuffix(host, ".")
	if i := strings.LastIndex(host, "."); i >= 0 {
		return host[i+1:]
	}
	return host
}

// MatchesSuffix reports whether host equals parent or is a subdomain of it.
func MatchesSuffix(host, parent string) bool {
	if host == "" || parent == "" {
		return false
	}
	return host == parent || strings.HasSuffix(host, "."+parent)
}
