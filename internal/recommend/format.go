// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package recommend

import (
	"fmt"
	"strings"

	"github.com/reelpick/reelpick/internal/models"
)

// noAvailabilityMarker is the explicit marker used when an item streams
// nowhere we track. Its wording is part of the fallback text contract.
const noAvailabilityMarker = "No streaming availability"

// formatRecommendations turns the selected scored items into the immutable
// output shape.
func formatRecommendations(selected []models.ScoredItem, criteria models.RankingCriteria, region string) []models.Recommendation {
	recs := make([]models.Recommendation, len(selected))
	for i, item := range selected {
		year, _ := item.Detail.ReleaseYear()

		available := item.Availability.Platforms(region)
		platforms := make([]models.Platform, len(available))
		for j, name := range available {
			platforms[j] = models.Platform{Name: name, Kind: "subscription", Available: true}
		}

		recs[i] = models.Recommendation{
			Title:          item.Detail.Title,
			ReleaseYear:    year,
			RuntimeMinutes: item.Detail.RuntimeMinutes,
			Description:    item.Detail.Overview,
			Genres:         item.Detail.GenreNames(),
			Platforms:      platforms,
			MatchReason:    matchReason(item, criteria, region),
		}
	}
	return recs
}

// matchReason explains, in user terms, why the item was picked.
func matchReason(item models.ScoredItem, criteria models.RankingCriteria, region string) string {
	var parts []string

	if matched := matchedGenres(item.Detail, criteria.TargetGenres); len(matched) > 0 {
		parts = append(parts, "matches your "+humanJoin(matched)+" taste")
	}

	if len(criteria.UserPlatforms) > 0 {
		if onYours := intersect(criteria.UserPlatforms, item.Availability.Platforms(region)); len(onYours) > 0 {
			parts = append(parts, "streaming on "+humanJoin(onYours))
		}
	}

	if criteria.HasRuntimeConstraint() && item.Detail.RuntimeMinutes > 0 {
		parts = append(parts, fmt.Sprintf("fits your runtime preference at %d minutes", item.Detail.RuntimeMinutes))
	}

	if criteria.HasYearConstraint() {
		if year, ok := item.Detail.ReleaseYear(); ok {
			parts = append(parts, fmt.Sprintf("released in %d", year))
		}
	}

	if len(parts) == 0 {
		return "A popular pick right now"
	}

	reason := strings.Join(parts, ", ")
	return strings.ToUpper(reason[:1]) + reason[1:]
}

func matchedGenres(d *models.ItemDetail, targets []string) []string {
	var matched []string
	for _, target := range targets {
		for _, g := range d.Genres {
			if strings.EqualFold(target, g.Name) {
				matched = append(matched, target)
				break
			}
		}
	}
	return matched
}

func intersect(wanted, have []string) []string {
	var out []string
	for _, w := range wanted {
		for _, h := range have {
			if w == h {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// humanJoin renders a list as "a", "a and b" or "a, b and c".
func humanJoin(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// FallbackText renders recommendations as plain text for callers without a
// text-generation step. Every item always carries title/year/runtime, its
// genre list, its platform list or the no-availability marker, and the
// match reason.
func FallbackText(recs []models.Recommendation) string {
	if len(recs) == 0 {
		return "No recommendations available."
	}

	var b strings.Builder
	b.WriteString("Here are your movie recommendations:\n")
	for i, rec := range recs {
		fmt.Fprintf(&b, "\n%d. %s (%d, %d min)\n", i+1, rec.Title, rec.ReleaseYear, rec.RuntimeMinutes)

		if len(rec.Genres) > 0 {
			fmt.Fprintf(&b, "   Genres: %s\n", strings.Join(rec.Genres, ", "))
		} else {
			b.WriteString("   Genres: unknown\n")
		}

		if len(rec.Platforms) > 0 {
			names := make([]string, len(rec.Platforms))
			for j, p := range rec.Platforms {
				names[j] = p.Name
			}
			fmt.Fprintf(&b, "   Watch on: %s\n", strings.Join(names, ", "))
		} else {
			fmt.Fprintf(&b, "   %s\n", noAvailabilityMarker)
		}

		fmt.Fprintf(&b, "   Why: %s\n", rec.MatchReason)
	}
	return b.String()
}
