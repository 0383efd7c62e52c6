// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package recommend

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/reelpick/reelpick/internal/cache"
	"github.com/reelpick/reelpick/internal/models"
	"github.com/reelpick/reelpick/internal/pipeline"
	"github.com/reelpick/reelpick/internal/provider"
)

func intp(n int) *int { return &n }

// fakeGateway serves canned data so engine runs need no network.
type fakeGateway struct {
	candidates  []models.CandidateItem
	details     map[int]*models.ItemDetail
	avail       map[int]models.Availability
	discoverErr error
}

func (g *fakeGateway) Discover(ctx context.Context, q provider.Query) ([]models.CandidateItem, error) {
	if g.discoverErr != nil {
		return nil, g.discoverErr
	}
	return g.candidates, nil
}

func (g *fakeGateway) GetDetail(ctx context.Context, id int) (*models.ItemDetail, models.Availability, error) {
	detail, ok := g.details[id]
	if !ok {
		return nil, models.Availability{}, fmt.Errorf("no detail for id %d", id)
	}
	return detail, g.avail[id], nil
}

// seededGateway returns a gateway with n comedy candidates streaming on
// Netflix in the US, popularity descending from the first candidate.
func seededGateway(n int) *fakeGateway {
	g := &fakeGateway{
		details: make(map[int]*models.ItemDetail),
		avail:   make(map[int]models.Availability),
	}
	for i := 1; i <= n; i++ {
		g.candidates = append(g.candidates, models.CandidateItem{ID: i})
		g.details[i] = &models.ItemDetail{
			ID:             i,
			Title:          fmt.Sprintf("Movie %d", i),
			ReleaseDate:    "2005-06-01",
			RuntimeMinutes: 100,
			Overview:       "A film.",
			Genres:         []models.Genre{{ID: 35, Name: "Comedy"}},
			Popularity:     float64(1000 - i*10),
		}
		g.avail[i] = models.Availability{
			ItemID:            i,
			PlatformsByRegion: map[string][]string{"US": {"Netflix"}},
		}
	}
	return g
}

func newTestEngine(g *fakeGateway, opts ...Option) *Engine {
	return NewEngine(pipeline.New(g), cache.New(time.Minute), "US", opts...)
}

func TestRecommend_StageOrderOnSuccess(t *testing.T) {
	t.Parallel()

	var stages []string
	e := newTestEngine(seededGateway(6), WithStageListener(func(stage string) {
		stages = append(stages, stage)
	}))

	if _, perr := e.Recommend(context.Background(), Request{Mood: "happy"}); perr != nil {
		t.Fatalf("Recommend: %v", perr)
	}

	want := []string{
		"Validating input",
		"Resolving genres",
		"Discovering candidates",
		"Fetching details",
		"Applying filters",
		"Ranking results",
		"Selecting recommendations",
		"Formatting output",
	}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("stage events = %v, want %v", stages, want)
	}
}

func TestRecommend_RuntimeValidation(t *testing.T) {
	t.Parallel()

	// Scenario: min above max must abort with a ValidationFailed whose
	// message names the runtime.
	e := newTestEngine(seededGateway(6))
	_, perr := e.Recommend(context.Background(), Request{
		RuntimeMin: intp(130),
		RuntimeMax: intp(120),
	})
	if perr == nil {
		t.Fatal("expected a validation error")
	}
	if perr.Category != CategoryValidationFailed {
		t.Errorf("category = %q, want %q", perr.Category, CategoryValidationFailed)
	}
	if !strings.Contains(perr.Message, "runtime") {
		t.Errorf("message should mention runtime, got %q", perr.Message)
	}
}

func TestRecommend_ValidationRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
	}{
		{name: "platform outside allow-list", req: Request{Platforms: []string{"Blockbuster"}}},
		{name: "year below lower bound", req: Request{Year: intp(1750)}},
		{name: "year above upper bound", req: Request{Year: intp(2150)}},
		{name: "range from above to", req: Request{YearFrom: intp(2000), YearTo: intp(1990)}},
		{name: "range bound outside year bounds", req: Request{YearFrom: intp(1700), YearTo: intp(1990)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(seededGateway(6))
			_, perr := e.Recommend(context.Background(), tt.req)
			if perr == nil || perr.Category != CategoryValidationFailed {
				t.Fatalf("want ValidationFailed, got %v", perr)
			}
		})
	}
}

func TestRecommend_SelectionBounds(t *testing.T) {
	t.Parallel()

	// Scenario: more than 5 ranked candidates yields exactly the top 5.
	e := newTestEngine(seededGateway(9))
	recs, perr := e.Recommend(context.Background(), Request{Mood: "happy"})
	if perr != nil {
		t.Fatalf("Recommend: %v", perr)
	}
	if len(recs) != 5 {
		t.Fatalf("got %d recommendations, want 5", len(recs))
	}
	// Popularity decides among otherwise equal candidates, so the most
	// popular seeds come back first.
	if recs[0].Title != "Movie 1" {
		t.Errorf("first recommendation = %q, want Movie 1", recs[0].Title)
	}

	// Exactly 3 filtered candidates is enough.
	e = newTestEngine(seededGateway(3))
	recs, perr = e.Recommend(context.Background(), Request{Mood: "happy"})
	if perr != nil {
		t.Fatalf("Recommend with 3 candidates: %v", perr)
	}
	if len(recs) != 3 {
		t.Errorf("got %d recommendations, want 3", len(recs))
	}
}

func TestRecommend_TooFewCandidatesIsNoResults(t *testing.T) {
	t.Parallel()

	// Scenario: fewer than 3 filtered candidates yields NoResults.
	e := newTestEngine(seededGateway(2))
	_, perr := e.Recommend(context.Background(), Request{Mood: "happy"})
	if perr == nil || perr.Category != CategoryNoResults {
		t.Fatalf("want NoResults, got %v", perr)
	}

	// An empty filtered set as well.
	e = newTestEngine(seededGateway(0))
	_, perr = e.Recommend(context.Background(), Request{Mood: "happy"})
	if perr == nil || perr.Category != CategoryNoResults {
		t.Fatalf("want NoResults for empty set, got %v", perr)
	}
}

func TestRecommend_ClassifiesUpstreamFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Category
	}{
		{
			name: "unauthorized",
			err:  &provider.Error{Code: provider.CodeUnauthorized, Status: 401, Message: "unexpected status 401 from /discover/movie: invalid token"},
			want: CategoryInvalidCredentials,
		},
		{
			name: "rate limited",
			err:  &provider.Error{Code: provider.CodeRateLimited, Status: 429, Message: "unexpected status 429 from /discover/movie: slow down"},
			want: CategoryRateLimited,
		},
		{
			name: "unavailable",
			err:  &provider.Error{Code: provider.CodeUnavailable, Message: "connection failed: dial tcp: refused"},
			want: CategoryUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := seededGateway(6)
			g.discoverErr = tt.err

			_, perr := newTestEngine(g).Recommend(context.Background(), Request{Mood: "happy"})
			if perr == nil {
				t.Fatal("expected an error")
			}
			if perr.Category != tt.want {
				t.Errorf("category = %q, want %q", perr.Category, tt.want)
			}
			// Production responses never leak upstream text.
			if perr.Detail != "" {
				t.Errorf("detail must be empty outside debug mode, got %q", perr.Detail)
			}
			if strings.Contains(perr.Message, "/discover/movie") {
				t.Errorf("user message leaks upstream detail: %q", perr.Message)
			}
		})
	}
}

func TestRecommend_DebugModeAttachesDetail(t *testing.T) {
	t.Parallel()

	g := seededGateway(6)
	g.discoverErr = &provider.Error{Code: provider.CodeRateLimited, Status: 429, Message: "unexpected status 429 from /discover/movie: slow down"}

	_, perr := newTestEngine(g, WithDebug(true)).Recommend(context.Background(), Request{Mood: "happy"})
	if perr == nil {
		t.Fatal("expected an error")
	}
	// Scenario: exhausted retries on a sustained 429 keep "429" visible in
	// the diagnostic detail.
	if !strings.Contains(perr.Detail, "429") {
		t.Errorf("debug detail should carry the upstream status, got %q", perr.Detail)
	}
}

func TestRecommend_Idempotent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(seededGateway(7))
	req := Request{Mood: "happy", Platforms: []string{"Netflix"}}

	first, perr := e.Recommend(context.Background(), req)
	if perr != nil {
		t.Fatal(perr)
	}
	second, perr := e.Recommend(context.Background(), req)
	if perr != nil {
		t.Fatal(perr)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical input must yield identical ordered output")
	}
}

func TestRecommend_PopulatesRecommendationFields(t *testing.T) {
	t.Parallel()

	e := newTestEngine(seededGateway(3))
	recs, perr := e.Recommend(context.Background(), Request{Mood: "happy", Platforms: []string{"Netflix"}})
	if perr != nil {
		t.Fatal(perr)
	}

	rec := recs[0]
	if rec.ReleaseYear != 2005 || rec.RuntimeMinutes != 100 {
		t.Errorf("year/runtime = %d/%d, want 2005/100", rec.ReleaseYear, rec.RuntimeMinutes)
	}
	if len(rec.Platforms) != 1 || rec.Platforms[0].Name != "Netflix" {
		t.Errorf("platforms = %v", rec.Platforms)
	}
	if rec.Platforms[0].Kind != "subscription" || !rec.Platforms[0].Available {
		t.Errorf("platform entry = %+v", rec.Platforms[0])
	}
	if !strings.Contains(rec.MatchReason, "Comedy") {
		t.Errorf("match reason should mention the matched genre, got %q", rec.MatchReason)
	}
	if !strings.Contains(rec.MatchReason, "Netflix") {
		t.Errorf("match reason should mention the platform, got %q", rec.MatchReason)
	}
}

func TestResetCache(t *testing.T) {
	t.Parallel()

	store := cache.New(time.Minute)
	store.Set("k", "v")

	e := NewEngine(pipeline.New(seededGateway(3)), store, "US")
	e.ResetCache()
	if store.Size() != 0 {
		t.Error("reset must drop all cached entries")
	}
}
