// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reelpick/reelpick/internal/models"
)

func sampleRecs() []models.Recommendation {
	return []models.Recommendation{
		{
			Title:          "Paddington 2",
			ReleaseYear:    2017,
			RuntimeMinutes: 103,
			Genres:         []string{"Comedy", "Family"},
			Platforms:      []models.Platform{{Name: "Netflix", Kind: "subscription", Available: true}},
			MatchReason:    "Matches your Comedy and Family taste",
		},
	}
}

func TestPresent_UsesModelText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"A lovely bear movie awaits you on Netflix."}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	p := New("key", "gemini-2.0-flash", time.Second, WithBaseURL(srv.URL))
	got := p.Present(context.Background(), sampleRecs())
	if got != "A lovely bear movie awaits you on Netflix." {
		t.Errorf("got %q", got)
	}
}

func TestPresent_FallsBackOnServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	p := New("key", "gemini-2.0-flash", time.Second, WithBaseURL(srv.URL))
	got := p.Present(context.Background(), sampleRecs())
	if !strings.Contains(got, "Paddington 2 (2017, 103 min)") {
		t.Errorf("expected deterministic fallback text, got %q", got)
	}
}

func TestPresent_FallsBackWhenUnconfigured(t *testing.T) {
	t.Parallel()

	p := New("", "gemini-2.0-flash", time.Second)
	got := p.Present(context.Background(), sampleRecs())
	if !strings.Contains(got, "Watch on: Netflix") {
		t.Errorf("expected fallback text, got %q", got)
	}

	var nilPresenter *Presenter
	if nilPresenter.IsConfigured() {
		t.Error("nil presenter must report unconfigured")
	}
}

func TestPresent_FallsBackOnEmptyCandidates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	t.Cleanup(srv.Close)

	p := New("key", "gemini-2.0-flash", time.Second, WithBaseURL(srv.URL))
	got := p.Present(context.Background(), sampleRecs())
	if !strings.Contains(got, "Paddington 2") {
		t.Errorf("expected fallback text, got %q", got)
	}
}
