// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package provider is the gateway to the upstream movie metadata service.
//
// All outbound calls run through the shared throttle client and a circuit
// breaker, and every successful response is cached with canonical keys so
// equivalent requests across pipeline runs collapse into one upstream call.
// Failures surface as structured *Error values carrying a classification
// code; callers never parse upstream response bodies or status codes.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/reelpick/reelpick/internal/cache"
	"github.com/reelpick/reelpick/internal/logging"
	"github.com/reelpick/reelpick/internal/metrics"
	"github.com/reelpick/reelpick/internal/models"
	"github.com/reelpick/reelpick/internal/throttle"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// Client talks to the metadata provider. Safe for concurrent use.
type Client struct {
	baseURL  string
	token    string
	httpc    *http.Client
	store    *cache.Cache
	scope    cache.Scope
	throttle *throttle.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithScope namespaces every cache key the client writes under the given
// tenant/user/session scope. The default scope is empty, so all callers
// share one cache namespace.
func WithScope(scope cache.Scope) Option {
	return func(c *Client) { c.scope = scope }
}

// New creates a provider gateway. Construction fails immediately if baseURL
// does not use HTTPS; credentials must never travel in cleartext.
func New(baseURL, token string, store *cache.Cache, th *throttle.Client, opts ...Option) (*Client, error) {
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("provider base URL must use https, got %q", baseURL)
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		httpc:    &http.Client{Timeout: 15 * time.Second},
		store:    store,
		throttle: th,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker("provider")

	return c, nil
}

// newBreaker builds the circuit breaker guarding upstream calls. It trips
// after 10+ requests with a 60% failure ratio and probes again after 30s.
func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Query describes a discovery request. Nil pointer fields are omitted from
// the upstream call. An exact Year takes precedence over a year range.
type Query struct {
	GenreIDs   []int
	Year       *int
	YearFrom   *int
	YearTo     *int
	RuntimeMin *int
	RuntimeMax *int
	SortBy     string // defaults to popularity.desc
	Page       int
}

// params renders the query as upstream parameter pairs.
func (q Query) params() map[string]string {
	p := make(map[string]string, 8)

	if len(q.GenreIDs) > 0 {
		ids := make([]string, len(q.GenreIDs))
		for i, id := range q.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		p["with_genres"] = strings.Join(ids, ",")
	}

	if q.Year != nil {
		p["primary_release_year"] = strconv.Itoa(*q.Year)
	} else {
		if q.YearFrom != nil {
			p["primary_release_date.gte"] = fmt.Sprintf("%04d-01-01", *q.YearFrom)
		}
		if q.YearTo != nil {
			p["primary_release_date.lte"] = fmt.Sprintf("%04d-12-31", *q.YearTo)
		}
	}

	if q.RuntimeMin != nil {
		p["with_runtime.gte"] = strconv.Itoa(*q.RuntimeMin)
	}
	if q.RuntimeMax != nil {
		p["with_runtime.lte"] = strconv.Itoa(*q.RuntimeMax)
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	p["sort_by"] = sortBy

	if q.Page > 0 {
		p["page"] = strconv.Itoa(q.Page)
	}
	return p
}

// values converts the rendered params to url.Values for the request line.
func (q Query) values() url.Values {
	v := url.Values{}
	for k, val := range q.params() {
		v.Set(k, val)
	}
	return v
}

type discoverResponse struct {
	Page    int                    `json:"page"`
	Results []models.CandidateItem `json:"results"`
}

// Discover runs a discovery query and returns the candidate items, most
// popular first. Results are cached under the canonical query key.
func (c *Client) Discover(ctx context.Context, q Query) ([]models.CandidateItem, error) {
	key := c.scope.Key(discoverCacheKey(q.params()))
	if cached, ok := cache.GetTyped[[]models.CandidateItem](c.store, key); ok {
		return cached, nil
	}

	var resp discoverResponse
	if err := c.get(ctx, "discover", "/discover/movie", q.values(), &resp); err != nil {
		return nil, err
	}

	c.store.Set(key, resp.Results)
	return resp.Results, nil
}

// providerEntry is one streaming offering in an upstream availability block.
type providerEntry struct {
	ProviderName string `json:"provider_name"`
}

type regionOfferings struct {
	Flatrate []providerEntry `json:"flatrate"`
}

type watchProvidersPayload struct {
	Results map[string]regionOfferings `json:"results"`
}

// detailPayload is the combined detail response when availability is
// appended to the detail call.
type detailPayload struct {
	models.ItemDetail
	WatchProviders watchProvidersPayload `json:"watch/providers"`
}

// detailEntry is the cached form of a hydrated detail.
type detailEntry struct {
	Detail       models.ItemDetail
	Availability models.Availability
}

// GetDetail fetches an item's full detail with its streaming availability
// appended, using a single upstream call. Both are cached together.
func (c *Client) GetDetail(ctx context.Context, id int) (*models.ItemDetail, models.Availability, error) {
	key := c.scope.Key(detailCacheKey(id))
	if cached, ok := cache.GetTyped[detailEntry](c.store, key); ok {
		detail := cached.Detail
		return &detail, cached.Availability, nil
	}

	query := url.Values{}
	query.Set("append_to_response", "watch/providers")

	var payload detailPayload
	path := fmt.Sprintf("/movie/%d", id)
	if err := c.get(ctx, "detail", path, query, &payload); err != nil {
		return nil, models.Availability{}, err
	}

	availability := normalizeAvailability(payload.ID, payload.WatchProviders)
	c.store.Set(key, detailEntry{Detail: payload.ItemDetail, Availability: availability})

	detail := payload.ItemDetail
	return &detail, availability, nil
}

// GetAvailability fetches an item's streaming platforms for one region.
// Cached per (item, region) pair.
func (c *Client) GetAvailability(ctx context.Context, id int, region string) (models.Availability, error) {
	region = strings.ToUpper(region)
	key := c.scope.Key(availabilityCacheKey(id, region))
	if cached, ok := cache.GetTyped[[]string](c.store, key); ok {
		return models.Availability{
			ItemID:            id,
			PlatformsByRegion: map[string][]string{region: cached},
		}, nil
	}

	var payload watchProvidersPayload
	path := fmt.Sprintf("/movie/%d/watch/providers", id)
	if err := c.get(ctx, "availability", path, nil, &payload); err != nil {
		return models.Availability{}, err
	}

	all := normalizeAvailability(id, payload)
	platforms := all.Platforms(region)
	c.store.Set(key, platforms)

	return models.Availability{
		ItemID:            id,
		PlatformsByRegion: map[string][]string{region: platforms},
	}, nil
}

// normalizeAvailability maps an upstream availability payload onto the
// canonical platform allow-list. Only subscription (flatrate) offerings
// count; unknown platforms are silently dropped.
func normalizeAvailability(id int, payload watchProvidersPayload) models.Availability {
	byRegion := make(map[string][]string, len(payload.Results))
	for region, offerings := range payload.Results {
		names := make([]string, 0, len(offerings.Flatrate))
		for _, entry := range offerings.Flatrate {
			names = append(names, entry.ProviderName)
		}
		if platforms := normalizePlatforms(names); len(platforms) > 0 {
			byRegion[strings.ToUpper(region)] = platforms
		}
	}
	return models.Availability{ItemID: id, PlatformsByRegion: byRegion}
}

// get performs a throttled, breaker-guarded GET and decodes the response
// into result.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, result any) error {
	start := time.Now()
	body, err := throttle.Do(ctx, c.throttle, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, path, query)
	})
	metrics.ProviderRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderRequests.WithLabelValues(operation, outcomeFor(err)).Inc()
		logging.Debug().
			Str("operation", operation).
			Str("path", path).
			Err(err).
			Msg("provider request failed")
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		metrics.ProviderRequests.WithLabelValues(operation, string(CodeMalformed)).Inc()
		return malformedError(path, err)
	}
	metrics.ProviderRequests.WithLabelValues(operation, "success").Inc()
	return nil
}

// fetch runs one HTTP attempt through the circuit breaker.
func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doHTTP(ctx, path, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &Error{Code: CodeUnavailable, Message: fmt.Sprintf("provider circuit open: %v", err)}
	}
	return body, err
}

func (c *Client) doHTTP(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, &Error{Code: CodeOther, Message: fmt.Sprintf("build request for %s: %v", path, err)}
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, path, string(body))
	}
	return body, nil
}

// outcomeFor labels a failed request for metrics.
func outcomeFor(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return string(perr.Code)
	}
	return "error"
}
