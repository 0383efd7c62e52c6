// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package provider

import (
	"fmt"
	"sort"
	"strings"
)

// discoverCacheKey builds the canonical cache key for a discovery query:
// parameters sorted by name and joined as key=value pairs, so semantically
// identical queries hit the same entry regardless of construction order.
func discoverCacheKey(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return "discover:" + strings.Join(pairs, "&")
}

// detailCacheKey builds the cache key for a hydrated item detail.
func detailCacheKey(id int) string {
	return fmt.Sprintf("detail:%d", id)
}

// availabilityCacheKey builds the cache key for an item's availability in
// one region.
func availabilityCacheKey(id int, region string) string {
	return fmt.Sprintf("availability:%d:%s", id, strings.ToUpper(region))
}
