package core

import "strings"

// NormalizeSubject canonicalizes a subject key (email) for store lookups
// and comparisons: trimmed and lowercased. Records are keyed on the
// normalized form; raw user input must pass through here before any query.
func NormalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

// SameSubject reports whether two raw subject strings identify the same
// subject after normalization.
func SameSubject(a, b string) bool {
	return NormalizeSubject(a) == NormalizeSubject(b)
}

// ValidSubject is a cheap structural check: non-empty, contains a single
// "@" with a dot somewhere after it. Full address validation is the signup
// flow's job; this only rejects values that can never key a record.
func ValidSubject(subject string) bool {
	s := NormalizeSubject(subject)
	at := strings.IndexByte(s, '@')
	if at <= 0 || at != strings.LastIndexByte(s, '@') {
		return false
	}
	domain := s[at+1:]
	return strings.IndexByte(domain, '.') > 0
}
