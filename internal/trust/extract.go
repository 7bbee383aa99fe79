package trust

import (
	"regexp"
	"strings"
)

var (
	absPathPattern = regexp.MustCompile(`/[a-zA-Z0-9_\-./]+`)
	relPathPattern = regexp.MustCompile(`\.\./[a-zA-Z0-9_\-./]+|\./[a-zA-Z0-9_\-./]+`)
	fileExtPattern = regexp.MustCompile(`[a-zA-Z0-9_\-./]+\.[a-zA-Z0-9]+`)
)

// ExtractPaths scans free-form text for path-like tokens: absolute paths,
// explicit relative paths, and extension-bearing tokens. Results keep their
// literal spelling and are de-duplicated; absolute candidates are compared in
// normalized form, relative and bare candidates literally. A bare extension
// token like ".png" is not a path and is dropped.
func ExtractPaths(text string) []string {
	var candidates []string
	candidates = append(candidates, absPathPattern.FindAllString(text, -1)...)
	candidates = append(candidates, relPathPattern.FindAllString(text, -1)...)
	candidates = append(candidates, fileExtPattern.FindAllString(text, -1)...)

	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, p := range candidates {
		if strings.HasPrefix(p, ".") && !strings.Contains(p, "/") {
			continue
		}
		key := p
		if strings.HasPrefix(p, "/") {
			key = Normalize(p)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// UntrustedPaths returns the absolute-path candidates in message that the
// store does not trust. Relative and bare candidates are extracted but not
// gated.
func UntrustedPaths(store *Store, message string) []string {
	var untrusted []string
	for _, p := range ExtractPaths(message) {
		if !strings.HasPrefix(p, "/") {
			continue
		}
		if !store.IsTrusted(p) {
			untrusted = append(untrusted, p)
		}
	}
	return untrusted
}
