package rules

import "strings"

// excludedPrefixes are URL prefixes for browser-internal and extension pages.
// These tabs are never grouped.
var excludedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"edge://",
	"moz-extension://",
	"about:",
}

// Eligible reports whether a tab with this URL may be grouped at all.
func Eligible(url string) bool {
	if url == "" {
		return false
	}
	lower := strings.ToLower(url)
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// Matches reports whether any of the rule's patterns is a case-insensitive
// substring of url. The enabled flag is not consulted.
func (r Rule) Matches(url string) bool {
	lower := strings.ToLower(url)
	for _, p := range r.Pattern {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Match returns the first enabled rule, in list order, that matches url.
func Match(url string, rs []Rule) (Rule, bool) {
	for _, r := range rs {
		if !r.Enabled {
			continue
		}
		if r.Matches(url) {
			return r, true
		}
	}
	return Rule{}, false
}
