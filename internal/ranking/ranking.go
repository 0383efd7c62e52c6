// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package ranking scores filtered candidates against the user's criteria.
//
// A score is a weighted sum of five independent sub-scores, each normalized
// to [0,1]: genre match (40), platform match (30), runtime fit (15), year
// fit (10) and popularity (5). An unset constraint scores neutral 0.5, so
// unconstrained dimensions neither reward nor punish. Popularity is a pure
// tiebreaker; its weight can never outrank a genre or platform mismatch.
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/reelpick/reelpick/internal/models"
)

const (
	weightGenre      = 40.0
	weightPlatform   = 30.0
	weightRuntime    = 15.0
	weightYear       = 10.0
	weightPopularity = 5.0

	neutral = 0.5

	// runtimeDecayMinutes controls how fast runtime-fit falls off outside
	// the requested bounds; yearDecayYears does the same for a preferred
	// year.
	runtimeDecayMinutes = 30.0
	yearDecayYears      = 5.0

	popularityCeiling = 1000.0
)

// Score computes the total score in [0,100] for one candidate.
func Score(c models.HydratedCandidate, criteria models.RankingCriteria, region string) float64 {
	return weightGenre*genreScore(c.Detail, criteria) +
		weightPlatform*platformScore(c, criteria, region) +
		weightRuntime*runtimeScore(c.Detail, criteria) +
		weightYear*yearScore(c.Detail, criteria) +
		weightPopularity*popularityScore(c.Detail)
}

// Rank scores every candidate and returns them sorted descending by score.
// The sort is stable: equal scores keep their relative input order.
func Rank(candidates []models.HydratedCandidate, criteria models.RankingCriteria, region string) []models.ScoredItem {
	scored := make([]models.ScoredItem, len(candidates))
	for i, c := range candidates {
		scored[i] = models.ScoredItem{
			Detail:       c.Detail,
			Availability: c.Availability,
			Score:        Score(c, criteria, region),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// genreScore is the fraction of target genres present on the item; neutral
// without a genre constraint, zero when the item carries no genres.
func genreScore(d *models.ItemDetail, criteria models.RankingCriteria) float64 {
	if len(criteria.TargetGenres) == 0 {
		return neutral
	}
	if len(d.Genres) == 0 {
		return 0
	}

	matched := 0
	for _, target := range criteria.TargetGenres {
		for _, g := range d.Genres {
			if genreEqual(target, g.Name) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(criteria.TargetGenres))
}

// genreEqual compares genre names case-insensitively. Musical is the
// user-facing alias for the provider's Music genre.
func genreEqual(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	norm := func(s string) string {
		if strings.EqualFold(s, "Musical") {
			return "Music"
		}
		return s
	}
	return strings.EqualFold(norm(a), norm(b))
}

// platformScore is all-or-nothing: the item streams on at least one of the
// requested platforms, or it does not.
func platformScore(c models.HydratedCandidate, criteria models.RankingCriteria, region string) float64 {
	if len(criteria.UserPlatforms) == 0 {
		return neutral
	}
	available := c.Availability.Platforms(region)
	for _, want := range criteria.UserPlatforms {
		for _, have := range available {
			if want == have {
				return 1
			}
		}
	}
	return 0
}

// runtimeScore is 1.0 inside the inclusive bounds and decays exponentially
// with the distance in minutes outside the nearer bound.
func runtimeScore(d *models.ItemDetail, criteria models.RankingCriteria) float64 {
	if !criteria.HasRuntimeConstraint() {
		return neutral
	}
	runtime := d.RuntimeMinutes
	if runtime <= 0 {
		return 0
	}

	var outside int
	switch {
	case criteria.RuntimeMin != nil && runtime < *criteria.RuntimeMin:
		outside = *criteria.RuntimeMin - runtime
	case criteria.RuntimeMax != nil && runtime > *criteria.RuntimeMax:
		outside = runtime - *criteria.RuntimeMax
	default:
		return 1
	}
	return math.Exp(-float64(outside) / runtimeDecayMinutes)
}

// yearScore: a preferred exact year decays with distance; a range is
// all-or-nothing with no partial credit outside it.
func yearScore(d *models.ItemDetail, criteria models.RankingCriteria) float64 {
	if !criteria.HasYearConstraint() {
		return neutral
	}
	year, ok := d.ReleaseYear()
	if !ok {
		return 0
	}

	if criteria.PreferredYear != nil {
		away := year - *criteria.PreferredYear
		if away < 0 {
			away = -away
		}
		if away == 0 {
			return 1
		}
		return math.Exp(-float64(away) / yearDecayYears)
	}

	if criteria.YearFrom != nil && year < *criteria.YearFrom {
		return 0
	}
	if criteria.YearTo != nil && year > *criteria.YearTo {
		return 0
	}
	return 1
}

// popularityScore normalizes provider popularity onto [0,1] with a hard
// ceiling.
func popularityScore(d *models.ItemDetail) float64 {
	return math.Min(d.Popularity, popularityCeiling) / popularityCeiling
}
