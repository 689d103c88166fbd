package brand

import (
	"strings"
	"unicode"
)

// CleanDomain reduces a domain, host or URL to a bare lowercase host with no
// protocol, credentials, "www." prefix, port or path. It returns "" when
// nothing host-like remains.
func CleanDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	for _, sep := range []string{"/", "?", "#"} {
		if i := strings.Index(s, sep); i >= 0 {
			s = s[:i]
		}
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, ".")
	s = strings.TrimPrefix(s, "www.")
	if s == "" || !isHostname(s) {
		return ""
	}
	return s
}

func isHostname(s string) bool {
	for _, r := range s {
		if r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// CacheKey is the brand-domain cache key for a brand name: lowercase with
// all whitespace removed.
func CacheKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}

// Slug turns a brand name into a guessable domain label ("Acme Corp" ->
// "acmecorp"). Only ASCII letters, digits and inner hyphens survive.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
