package rename

import "strings"

// Transform removes every pattern from name, in order, and reports whether
// anything was removed.
//
// Patterns are applied one after another to the already-modified name, so a
// removal may join two fragments into a new match for a later pattern. Each
// pattern removes all of its non-overlapping occurrences, left to right, with
// exact case-sensitive byte matching.
//
// When nothing was removed Transform returns ("", false) and the entry must be
// left alone. An empty or otherwise unusable result is not rejected here.
func Transform(name string, patterns []string) (string, bool) {
	changed := false
	for _, p := range patterns {
		if p == "" || !strings.Contains(name, p) {
			continue
		}
		name = strings.ReplaceAll(name, p, "")
		changed = true
	}
	if !changed {
		return "", false
	}
	return name, true
}
