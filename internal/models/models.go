// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package models holds the domain types shared across the recommendation
// pipeline: discovery candidates, hydrated details, availability sets,
// ranking criteria and the final recommendation shape.
package models

import (
	"strconv"
	"strings"
)

// CandidateItem is the raw projection of a single discovery result.
// Instances are immutable and discarded once detail hydration completes.
type CandidateItem struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	GenreIDs    []int   `json:"genre_ids"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
}

// Genre is a provider genre with its canonical display name.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ItemDetail is the hydrated form of a CandidateItem. At most one detail is
// fetched per candidate id per pipeline run, subject to caching.
type ItemDetail struct {
	ID             int     `json:"id"`
	Title          string  `json:"title"`
	ReleaseDate    string  `json:"release_date"`
	RuntimeMinutes int     `json:"runtime"`
	Overview       string  `json:"overview"`
	Genres         []Genre `json:"genres"`
	Popularity     float64 `json:"popularity"`
}

// ReleaseYear parses the year from the item's release date.
// The second return is false when the release date is unknown or malformed.
func (d *ItemDetail) ReleaseYear() (int, bool) {
	if d == nil || len(d.ReleaseDate) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(d.ReleaseDate[:4])
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}

// GenreNames returns the item's genre names in provider order.
func (d *ItemDetail) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

// Availability maps regions to the canonical streaming platforms an item is
// available on. An empty set is valid and means "not streaming anywhere we
// track".
type Availability struct {
	ItemID            int                 `json:"item_id"`
	PlatformsByRegion map[string][]string `json:"platforms_by_region"`
}

// Platforms returns the canonical platform names for a region.
// Region matching is case-insensitive on the region code.
func (a Availability) Platforms(region string) []string {
	if a.PlatformsByRegion == nil {
		return nil
	}
	if p, ok := a.PlatformsByRegion[region]; ok {
		return p
	}
	return a.PlatformsByRegion[strings.ToUpper(region)]
}

// HasAny reports whether the item streams on at least one tracked platform
// in the region.
func (a Availability) HasAny(region string) bool {
	return len(a.Platforms(region)) > 0
}

// HydratedCandidate pairs an item's detail with its availability. This is
// the unit the filter chain and the ranking engine operate on.
type HydratedCandidate struct {
	Detail       *ItemDetail
	Availability Availability
}

// ScoredItem is a hydrated candidate with its ranking score.
// Ephemeral; exists only during ranking and selection.
type ScoredItem struct {
	Detail       *ItemDetail
	Availability Availability
	Score        float64
}

// RankingCriteria holds the user preferences the ranking engine scores
// against. Built once per pipeline run and read-only thereafter. Nil
// pointer fields mean the corresponding constraint is unset.
type RankingCriteria struct {
	TargetGenres  []string
	UserPlatforms []string
	RuntimeMin    *int
	RuntimeMax    *int
	PreferredYear *int
	YearFrom      *int
	YearTo        *int
}

// HasRuntimeConstraint reports whether any runtime bound is set.
func (c *RankingCriteria) HasRuntimeConstraint() bool {
	return c.RuntimeMin != nil || c.RuntimeMax != nil
}

// HasYearConstraint reports whether an exact year or a year range is set.
func (c *RankingCriteria) HasYearConstraint() bool {
	return c.PreferredYear != nil || c.YearFrom != nil || c.YearTo != nil
}

// Platform is a streaming platform entry on a final recommendation.
type Platform struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"` // currently always "subscription"
	Available bool   `json:"available"`
}

// Recommendation is the final output unit, immutable once constructed.
type Recommendation struct {
	Title          string     `json:"title"`
	ReleaseYear    int        `json:"release_year"`
	RuntimeMinutes int        `json:"runtime_minutes"`
	Description    string     `json:"description"`
	Genres         []string   `json:"genres"`
	Platforms      []Platform `json:"platforms"`
	MatchReason    string     `json:"match_reason"`
}
