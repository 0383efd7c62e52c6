// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package provider

import "testing"

func TestDiscoverCacheKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	// Maps built in different insertion orders must serialize identically.
	a := map[string]string{}
	a["with_genres"] = "35,10751"
	a["sort_by"] = "popularity.desc"
	a["primary_release_year"] = "1999"

	b := map[string]string{}
	b["primary_release_year"] = "1999"
	b["with_genres"] = "35,10751"
	b["sort_by"] = "popularity.desc"

	ka, kb := discoverCacheKey(a), discoverCacheKey(b)
	if ka != kb {
		t.Errorf("set-equal params produced different keys:\n%s\n%s", ka, kb)
	}
	want := "discover:primary_release_year=1999&sort_by=popularity.desc&with_genres=35,10751"
	if ka != want {
		t.Errorf("got %q, want %q", ka, want)
	}
}

func TestDiscoverCacheKey_DistinguishesQueries(t *testing.T) {
	t.Parallel()

	a := discoverCacheKey(map[string]string{"with_genres": "35"})
	b := discoverCacheKey(map[string]string{"with_genres": "27"})
	if a == b {
		t.Error("different queries must not collide")
	}
}

func TestEntityCacheKeys(t *testing.T) {
	t.Parallel()

	if got := detailCacheKey(603); got != "detail:603" {
		t.Errorf("got %q", got)
	}
	if got := availabilityCacheKey(603, "us"); got != "availability:603:US" {
		t.Errorf("region must be normalized upper-case, got %q", got)
	}
}
