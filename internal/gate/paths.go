package gate

import "strings"

// excludedPrefixes are never treated as protected, even when a configured
// prefix would otherwise match. API callers must receive status codes, not
// HTML redirects, and static assets are served to anyone.
var excludedPrefixes = []string{
	"/api/",
	"/static/",
	"/assets/",
	"/favicon.ico",
}

// PathSet classifies request paths as protected or not.
type PathSet struct {
	prefixes []string
}

// NewPathSet builds a matcher over the configured protected prefixes.
func NewPathSet(prefixes []string) *PathSet {
	normalized := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		normalized = append(normalized, strings.TrimSuffix(p, "/"))
	}
	return &PathSet{prefixes: normalized}
}

// Protected reports whether path requires an authenticated principal.
func (ps *PathSet) Protected(path string) bool {
	for _, ex := range excludedPrefixes {
		if strings.HasPrefix(path, ex) {
			return false
		}
	}
	for _, prefix := range ps.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
