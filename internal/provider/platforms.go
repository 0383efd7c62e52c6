// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package provider

import "strings"

// CanonicalPlatforms is the fixed allow-list of streaming platforms the
// system tracks, in display order. Availability normalization and request
// validation both resolve against this list.
var CanonicalPlatforms = []string{
	"Netflix",
	"Prime Video",
	"Disney+",
	"Max",
	"Hulu",
	"Apple TV+",
	"Paramount+",
	"Peacock",
}

// platformAliases maps lowercased upstream provider names, including the
// tiered and rebranded variants upstream reports, to canonical names.
var platformAliases = map[string]string{
	"netflix":                   "Netflix",
	"netflix standard with ads": "Netflix",
	"netflix basic with ads":    "Netflix",

	"amazon prime video":          "Prime Video",
	"prime video":                 "Prime Video",
	"amazon prime video with ads": "Prime Video",

	"disney plus": "Disney+",
	"disney+":     "Disney+",

	"max":     "Max",
	"hbo max": "Max",

	"hulu": "Hulu",

	"apple tv plus": "Apple TV+",
	"apple tv+":     "Apple TV+",

	"paramount plus":               "Paramount+",
	"paramount+":                   "Paramount+",
	"paramount plus with showtime": "Paramount+",

	"peacock":              "Peacock",
	"peacock premium":      "Peacock",
	"peacock premium plus": "Peacock",
}

// CanonicalPlatform resolves an upstream provider name to its canonical
// form. Unknown platforms resolve false and are dropped from availability.
func CanonicalPlatform(name string) (string, bool) {
	canonical, ok := platformAliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// IsCanonicalPlatform reports whether name is exactly a canonical platform
// name. Used to validate user platform preferences; aliases do not count.
func IsCanonicalPlatform(name string) bool {
	for _, p := range CanonicalPlatforms {
		if p == name {
			return true
		}
	}
	return false
}

// normalizePlatforms maps upstream provider names onto the canonical
// allow-list, dropping unknown platforms and duplicates. Order follows the
// canonical list, not upstream order, so cached values compare stably.
func normalizePlatforms(names []string) []string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if canonical, ok := CanonicalPlatform(n); ok {
			seen[canonical] = true
		}
	}

	out := make([]string, 0, len(seen))
	for _, p := range CanonicalPlatforms {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}
