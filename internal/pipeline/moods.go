// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package pipeline

// moodGenres maps a mood label to exactly three canonical genres. The table
// is fixed; unknown moods resolve to no genre constraint. Each mapping is
// duplicate-free by construction.
var moodGenres = map[string][]string{
	"happy":       {"Comedy", "Family", "Musical"},
	"sad":         {"Drama", "Romance", "Music"},
	"excited":     {"Action", "Adventure", "Thriller"},
	"scared":      {"Horror", "Thriller", "Mystery"},
	"romantic":    {"Romance", "Comedy", "Drama"},
	"curious":     {"Documentary", "History", "Mystery"},
	"adventurous": {"Adventure", "Fantasy", "Science Fiction"},
	"nostalgic":   {"Family", "Animation", "Fantasy"},
}

// genreIDs maps canonical genre names to provider genre ids. Musical is an
// accepted alias for the provider's Music genre.
var genreIDs = map[string]int{
	"Action":          28,
	"Adventure":       12,
	"Animation":       16,
	"Comedy":          35,
	"Crime":           80,
	"Documentary":     99,
	"Drama":           18,
	"Family":          10751,
	"Fantasy":         14,
	"History":         36,
	"Horror":          27,
	"Music":           10402,
	"Musical":         10402,
	"Mystery":         9648,
	"Romance":         10749,
	"Science Fiction": 878,
	"Thriller":        53,
	"War":             10752,
	"Western":         37,
}

// GenresForMood returns the fixed genre mapping for a mood label, or nil for
// an unknown mood. The returned slice is a copy.
func GenresForMood(mood string) []string {
	genres, ok := moodGenres[mood]
	if !ok {
		return nil
	}
	out := make([]string, len(genres))
	copy(out, genres)
	return out
}

// GenreIDs resolves genre names to provider ids, preserving order and
// collapsing duplicate ids. Names without a known id are skipped.
func GenreIDs(names []string) []int {
	seen := make(map[int]bool, len(names))
	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, ok := genreIDs[name]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
