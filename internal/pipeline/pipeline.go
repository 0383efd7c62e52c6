// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package pipeline turns user intent into a filtered candidate set.
//
// The stages run in a fixed order: resolve intent to genres, discover
// candidates through the provider gateway, hydrate details and availability
// concurrently, then apply the filter chain. Individual candidate failures
// never abort a run; failed or unavailable candidates are dropped and
// counted, and the survivors flow on to ranking.
package pipeline

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/reelpick/reelpick/internal/logging"
	"github.com/reelpick/reelpick/internal/metrics"
	"github.com/reelpick/reelpick/internal/models"
	"github.com/reelpick/reelpick/internal/provider"
)

// candidateWindow is how many discovery results move on to hydration.
const candidateWindow = 20

// hydrateWorkers bounds concurrent detail fetches per run. The shared
// throttle client enforces the process-wide bound underneath.
const hydrateWorkers = 10

// Intent captures the user's preferences for one run. Explicit genres take
// precedence over a mood label. Nil pointer fields mean unconstrained.
type Intent struct {
	Mood       string
	Genres     []string
	Platforms  []string
	RuntimeMin *int
	RuntimeMax *int
	Year       *int
	YearFrom   *int
	YearTo     *int
	Region     string
}

// Gateway is the provider surface the pipeline consumes.
type Gateway interface {
	Discover(ctx context.Context, q provider.Query) ([]models.CandidateItem, error)
	GetDetail(ctx context.Context, id int) (*models.ItemDetail, models.Availability, error)
}

// Pipeline discovers, hydrates and filters candidates for one region.
type Pipeline struct {
	gateway Gateway
}

// New creates a candidate pipeline over the given gateway.
func New(gateway Gateway) *Pipeline {
	return &Pipeline{gateway: gateway}
}

// ResolveGenres resolves the intent's genre constraint: explicit genres are
// used verbatim, otherwise the mood table applies, otherwise there is no
// genre constraint.
func ResolveGenres(intent Intent) []string {
	if len(intent.Genres) > 0 {
		return intent.Genres
	}
	if intent.Mood != "" {
		return GenresForMood(intent.Mood)
	}
	return nil
}

// Criteria builds the ranking criteria for an intent with its resolved
// genres.
func Criteria(intent Intent, genres []string) models.RankingCriteria {
	return models.RankingCriteria{
		TargetGenres:  genres,
		UserPlatforms: intent.Platforms,
		RuntimeMin:    intent.RuntimeMin,
		RuntimeMax:    intent.RuntimeMax,
		PreferredYear: intent.Year,
		YearFrom:      intent.YearFrom,
		YearTo:        intent.YearTo,
	}
}

// buildQuery renders an intent as a discovery query. An exact year takes
// precedence over the year range; the gateway enforces the same rule.
func buildQuery(intent Intent, genres []string) provider.Query {
	return provider.Query{
		GenreIDs:   GenreIDs(genres),
		Year:       intent.Year,
		YearFrom:   intent.YearFrom,
		YearTo:     intent.YearTo,
		RuntimeMin: intent.RuntimeMin,
		RuntimeMax: intent.RuntimeMax,
	}
}

// Discover resolves the intent and fetches the candidate window, most
// popular first.
func (p *Pipeline) Discover(ctx context.Context, intent Intent) ([]models.CandidateItem, error) {
	genres := ResolveGenres(intent)
	items, err := p.gateway.Discover(ctx, buildQuery(intent, genres))
	if err != nil {
		return nil, err
	}
	if len(items) > candidateWindow {
		items = items[:candidateWindow]
	}
	return items, nil
}

// Hydrate fetches detail and availability for each candidate concurrently,
// preserving discovery order. Candidates whose detail fetch fails are
// dropped and logged; candidates with no streaming availability in the
// intent's region are dropped before filtering.
func (p *Pipeline) Hydrate(ctx context.Context, candidates []models.CandidateItem, region string) []models.HydratedCandidate {
	results := make([]*models.HydratedCandidate, len(candidates))
	var mu sync.Mutex

	wp := pool.New().
		WithMaxGoroutines(hydrateWorkers).
		WithContext(ctx)

	for i, candidate := range candidates {
		wp.Go(func(ctx context.Context) error {
			detail, availability, err := p.gateway.GetDetail(ctx, candidate.ID)
			if err != nil {
				metrics.CandidatesDropped.WithLabelValues("fetch_error").Inc()
				logging.Warn().
					Int("item_id", candidate.ID).
					Str("title", candidate.Title).
					Err(err).
					Msg("dropping candidate, detail fetch failed")
				return nil
			}
			if !availability.HasAny(region) {
				metrics.CandidatesDropped.WithLabelValues("no_availability").Inc()
				logging.Debug().
					Int("item_id", candidate.ID).
					Str("region", region).
					Msg("dropping candidate, no streaming availability")
				return nil
			}

			mu.Lock()
			results[i] = &models.HydratedCandidate{Detail: detail, Availability: availability}
			mu.Unlock()
			return nil
		})
	}
	// Per-candidate errors are swallowed above; Wait only observes ctx.
	_ = wp.Wait()

	out := make([]models.HydratedCandidate, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// Filter applies the platform, runtime and year predicates as a conjunction.
// The predicates are independent, so their order never changes the result.
func Filter(candidates []models.HydratedCandidate, criteria models.RankingCriteria, region string) []models.HydratedCandidate {
	out := make([]models.HydratedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if matchesPlatform(c, criteria, region) &&
			matchesRuntime(c, criteria) &&
			matchesYear(c, criteria) {
			out = append(out, c)
		}
	}
	return out
}

// matchesPlatform passes everything when the user listed no platforms;
// otherwise the candidate must stream on at least one of them.
func matchesPlatform(c models.HydratedCandidate, criteria models.RankingCriteria, region string) bool {
	if len(criteria.UserPlatforms) == 0 {
		return true
	}
	available := c.Availability.Platforms(region)
	for _, want := range criteria.UserPlatforms {
		for _, have := range available {
			if want == have {
				return true
			}
		}
	}
	return false
}

// matchesRuntime applies inclusive runtime bounds. A candidate with unknown
// runtime fails whenever any bound is set.
func matchesRuntime(c models.HydratedCandidate, criteria models.RankingCriteria) bool {
	if !criteria.HasRuntimeConstraint() {
		return true
	}
	runtime := c.Detail.RuntimeMinutes
	if runtime <= 0 {
		return false
	}
	if criteria.RuntimeMin != nil && runtime < *criteria.RuntimeMin {
		return false
	}
	if criteria.RuntimeMax != nil && runtime > *criteria.RuntimeMax {
		return false
	}
	return true
}

// matchesYear applies the exact-year or inclusive-range predicate. A
// candidate with unknown release year fails whenever a year constraint is
// set. An exact preferred year matches that year only.
func matchesYear(c models.HydratedCandidate, criteria models.RankingCriteria) bool {
	if !criteria.HasYearConstraint() {
		return true
	}
	year, ok := c.Detail.ReleaseYear()
	if !ok {
		return false
	}
	if criteria.PreferredYear != nil {
		return year == *criteria.PreferredYear
	}
	if criteria.YearFrom != nil && year < *criteria.YearFrom {
		return false
	}
	if criteria.YearTo != nil && year > *criteria.YearTo {
		return false
	}
	return true
}

// Run executes discover, hydrate and filter for one intent and returns the
// surviving candidates with the criteria used.
func (p *Pipeline) Run(ctx context.Context, intent Intent) ([]models.HydratedCandidate, models.RankingCriteria, error) {
	genres := ResolveGenres(intent)
	criteria := Criteria(intent, genres)

	candidates, err := p.Discover(ctx, intent)
	if err != nil {
		return nil, criteria, err
	}

	hydrated := p.Hydrate(ctx, candidates, intent.Region)
	return Filter(hydrated, criteria, intent.Region), criteria, nil
}
