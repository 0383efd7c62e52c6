// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package ranking

import (
	"math"
	"testing"

	"github.com/reelpick/reelpick/internal/models"
)

func intp(n int) *int { return &n }

func candidate(id int, popularity float64, runtime int, releaseDate string, genres []string, platforms ...string) models.HydratedCandidate {
	gs := make([]models.Genre, len(genres))
	for i, name := range genres {
		gs[i] = models.Genre{ID: i + 1, Name: name}
	}
	return models.HydratedCandidate{
		Detail: &models.ItemDetail{
			ID:             id,
			RuntimeMinutes: runtime,
			ReleaseDate:    releaseDate,
			Genres:         gs,
			Popularity:     popularity,
		},
		Availability: models.Availability{
			ItemID:            id,
			PlatformsByRegion: map[string][]string{"US": platforms},
		},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScore_NoConstraintsIsNeutralPlusPopularity(t *testing.T) {
	t.Parallel()

	// With every dimension unconstrained the four preference sub-scores sit
	// at 0.5, so the total is 47.5 plus the popularity term alone.
	c := candidate(1, 500, 100, "2001-06-01", []string{"Drama"}, "Netflix")
	got := Score(c, models.RankingCriteria{}, "US")
	want := 47.5 + 5*0.5
	if !almostEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScore_MonotonicInPopularity(t *testing.T) {
	t.Parallel()

	criteria := models.RankingCriteria{}
	prev := -1.0
	for _, pop := range []float64{0, 10, 400, 999, 1000, 5000} {
		c := candidate(1, pop, 100, "2001-06-01", nil)
		s := Score(c, criteria, "US")
		if s < prev {
			t.Fatalf("score decreased as popularity rose: %v after %v", s, prev)
		}
		prev = s
	}

	// The ceiling flattens everything above 1000.
	a := Score(candidate(1, 1000, 0, "", nil), criteria, "US")
	b := Score(candidate(1, 9999, 0, "", nil), criteria, "US")
	if !almostEqual(a, b) {
		t.Errorf("popularity above the ceiling must not raise the score: %v vs %v", a, b)
	}
}

func TestScore_PopularityNeverOutweighsGenreMismatch(t *testing.T) {
	t.Parallel()

	criteria := models.RankingCriteria{TargetGenres: []string{"Comedy"}}

	match := Score(candidate(1, 0, 0, "", []string{"Comedy"}), criteria, "US")
	mismatch := Score(candidate(2, 100000, 0, "", []string{"Horror"}), criteria, "US")
	if match <= mismatch {
		t.Errorf("genre match at zero popularity (%v) must beat mismatch at max popularity (%v)", match, mismatch)
	}
}

func TestGenreScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		targets []string
		genres  []string
		want    float64
	}{
		{name: "no targets is neutral", targets: nil, genres: []string{"Drama"}, want: 0.5},
		{name: "item without genres scores zero", targets: []string{"Comedy"}, genres: nil, want: 0},
		{name: "full match", targets: []string{"Comedy", "Family"}, genres: []string{"Family", "Comedy"}, want: 1},
		{name: "partial match", targets: []string{"Comedy", "Family", "Musical"}, genres: []string{"Comedy"}, want: 1.0 / 3.0},
		{name: "musical matches provider music", targets: []string{"Musical"}, genres: []string{"Music"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := candidate(1, 0, 0, "", tt.genres)
			got := genreScore(c.Detail, models.RankingCriteria{TargetGenres: tt.targets})
			if !almostEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRuntimeScore_DecayOutsideBounds(t *testing.T) {
	t.Parallel()

	criteria := models.RankingCriteria{RuntimeMin: intp(90), RuntimeMax: intp(120)}

	tests := []struct {
		name    string
		runtime int
		want    float64
	}{
		{name: "at min", runtime: 90, want: 1},
		{name: "at max", runtime: 120, want: 1},
		{name: "inside", runtime: 100, want: 1},
		{name: "30 below min", runtime: 60, want: math.Exp(-1)},
		{name: "15 above max", runtime: 135, want: math.Exp(-0.5)},
		{name: "unknown runtime", runtime: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := candidate(1, 0, tt.runtime, "", nil)
			got := runtimeScore(c.Detail, criteria)
			if !almostEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		criteria models.RankingCriteria
		date     string
		want     float64
	}{
		{name: "no constraint is neutral", criteria: models.RankingCriteria{}, date: "1999-01-01", want: 0.5},
		{name: "unknown year scores zero", criteria: models.RankingCriteria{PreferredYear: intp(1999)}, date: "", want: 0},
		{name: "preferred exact match", criteria: models.RankingCriteria{PreferredYear: intp(1999)}, date: "1999-07-01", want: 1},
		{name: "preferred five years away", criteria: models.RankingCriteria{PreferredYear: intp(1999)}, date: "2004-07-01", want: math.Exp(-1)},
		{name: "inside range", criteria: models.RankingCriteria{YearFrom: intp(1990), YearTo: intp(2000)}, date: "1995-01-01", want: 1},
		{name: "range boundary", criteria: models.RankingCriteria{YearFrom: intp(1990), YearTo: intp(2000)}, date: "2000-12-01", want: 1},
		{name: "outside range gets no partial credit", criteria: models.RankingCriteria{YearFrom: intp(1990), YearTo: intp(2000)}, date: "2001-01-01", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := candidate(1, 0, 0, tt.date, nil)
			got := yearScore(c.Detail, tt.criteria)
			if !almostEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRank_StableDescending(t *testing.T) {
	t.Parallel()

	// Candidates 2 and 3 tie exactly; their input order must survive.
	candidates := []models.HydratedCandidate{
		candidate(1, 100, 0, "", nil),
		candidate(2, 500, 0, "", nil),
		candidate(3, 500, 0, "", nil),
		candidate(4, 900, 0, "", nil),
	}

	ranked := Rank(candidates, models.RankingCriteria{}, "US")
	gotIDs := []int{ranked[0].Detail.ID, ranked[1].Detail.ID, ranked[2].Detail.ID, ranked[3].Detail.ID}
	wantIDs := []int{4, 2, 3, 1}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("ranked order = %v, want %v", gotIDs, wantIDs)
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatal("scores not descending")
		}
	}
}
