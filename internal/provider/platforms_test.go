// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package provider

import (
	"reflect"
	"testing"
)

func TestCanonicalPlatform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "Netflix", want: "Netflix", ok: true},
		{in: "netflix standard with ads", want: "Netflix", ok: true},
		{in: "Amazon Prime Video", want: "Prime Video", ok: true},
		{in: "HBO Max", want: "Max", ok: true},
		{in: "Disney Plus", want: "Disney+", ok: true},
		{in: "  peacock premium  ", want: "Peacock", ok: true},
		{in: "Mubi", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := CanonicalPlatform(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CanonicalPlatform(%q) = %q/%v, want %q/%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsCanonicalPlatform(t *testing.T) {
	t.Parallel()

	for _, name := range CanonicalPlatforms {
		if !IsCanonicalPlatform(name) {
			t.Errorf("%q should be canonical", name)
		}
	}
	// Aliases are not canonical names themselves.
	if IsCanonicalPlatform("HBO Max") {
		t.Error("alias must not pass the canonical check")
	}
	if IsCanonicalPlatform("netflix") {
		t.Error("canonical check is case-sensitive by contract")
	}
}

func TestNormalizePlatforms(t *testing.T) {
	t.Parallel()

	got := normalizePlatforms([]string{
		"Peacock Premium",
		"Obscure Service",
		"HBO Max",
		"Netflix",
		"netflix standard with ads", // duplicate after aliasing
	})
	// Canonical list order, deduplicated, unknown dropped.
	want := []string{"Netflix", "Max", "Peacock"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if got := normalizePlatforms(nil); len(got) != 0 {
		t.Errorf("empty input should normalize to empty, got %v", got)
	}
}
