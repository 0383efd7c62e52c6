// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package recommend orchestrates one recommendation run end to end.
//
// The stage sequence is fixed: Validate, ResolveGenres, Discover, Hydrate,
// Filter, Rank, Select, Format. Each stage emits a named completion event
// whose exact wording is a contract surface for logs and tests. Any failure
// aborts the run and is classified exactly once onto the closed error
// taxonomy; the engine never lets a raw upstream error escape.
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/reelpick/reelpick/internal/cache"
	"github.com/reelpick/reelpick/internal/logging"
	"github.com/reelpick/reelpick/internal/metrics"
	"github.com/reelpick/reelpick/internal/models"
	"github.com/reelpick/reelpick/internal/pipeline"
	"github.com/reelpick/reelpick/internal/provider"
	"github.com/reelpick/reelpick/internal/ranking"
	"github.com/reelpick/reelpick/internal/validation"
)

// Stage event names, emitted in this order on a fully successful run.
// The wording is load-bearing: tests and log consumers match on it.
const (
	StageValidating  = "Validating input"
	StageResolving   = "Resolving genres"
	StageDiscovering = "Discovering candidates"
	StageFetching    = "Fetching details"
	StageFiltering   = "Applying filters"
	StageRanking     = "Ranking results"
	StageSelecting   = "Selecting recommendations"
	StageFormatting  = "Formatting output"
)

// Selection bounds: fewer than minSelect filtered candidates is a NoResults
// outcome; never return more than maxSelect.
const (
	minSelect = 3
	maxSelect = 5
)

// Request is the user input for one recommendation run. Explicit genres win
// over the mood; an exact year wins over the year range. Zero Region falls
// back to the engine's configured region.
type Request struct {
	Mood       string   `json:"mood"`
	Genres     []string `json:"genres"`
	Platforms  []string `json:"platforms" validate:"dive,platform"`
	RuntimeMin *int     `json:"runtime_min" validate:"omitempty,gte=1"`
	RuntimeMax *int     `json:"runtime_max" validate:"omitempty,gte=1"`
	Year       *int     `json:"year" validate:"omitempty,gte=1800,lte=2100"`
	YearFrom   *int     `json:"year_from" validate:"omitempty,gte=1800,lte=2100"`
	YearTo     *int     `json:"year_to" validate:"omitempty,gte=1800,lte=2100"`
	Region     string   `json:"region" validate:"omitempty,len=2"`
}

// StageListener observes stage completion events; used by tests and by
// callers that surface progress to users.
type StageListener func(stage string)

// Option customizes an Engine.
type Option func(*Engine)

// WithStageListener registers a stage event observer.
func WithStageListener(fn StageListener) Option {
	return func(e *Engine) { e.listener = fn }
}

// WithDebug enables diagnostic detail on returned errors. Never enable in
// production; detail strings carry raw upstream messages.
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// Engine runs the recommendation pipeline. Safe for concurrent use; all
// runs share the injected cache and the gateway's throttle underneath.
type Engine struct {
	pipe     *pipeline.Pipeline
	store    *cache.Cache
	region   string
	debug    bool
	listener StageListener
}

// NewEngine creates an orchestrator over the given pipeline. The cache is
// the same instance the gateway writes through; the engine owns its reset.
func NewEngine(pipe *pipeline.Pipeline, store *cache.Cache, region string, opts ...Option) *Engine {
	e := &Engine{
		pipe:   pipe,
		store:  store,
		region: region,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResetCache drops every cached entry. Intended for tests.
func (e *Engine) ResetCache() {
	if e.store != nil {
		e.store.Reset()
	}
}

// stageRun tracks the current stage for event emission and timing.
type stageRun struct {
	current   string
	startedAt time.Time
}

func (e *Engine) enterStage(run *stageRun, name string) {
	now := time.Now()
	if run.current != "" {
		metrics.PipelineStageDuration.WithLabelValues(run.current).Observe(now.Sub(run.startedAt).Seconds())
	}
	run.current = name
	run.startedAt = now

	logging.Info().Str("stage", name).Msg(name)
	if e.listener != nil {
		e.listener(name)
	}
}

func (e *Engine) finish(run *stageRun, outcome string) {
	if run.current != "" {
		metrics.PipelineStageDuration.WithLabelValues(run.current).Observe(time.Since(run.startedAt).Seconds())
	}
	metrics.PipelineRuns.WithLabelValues(outcome).Inc()
}

// Recommend executes one full run and returns between 3 and 5
// recommendations, or a classified PipelineError.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]models.Recommendation, *PipelineError) {
	run := &stageRun{}

	e.enterStage(run, StageValidating)
	if perr := e.validateRequest(&req); perr != nil {
		e.finish(run, string(perr.Category))
		return nil, perr
	}

	e.enterStage(run, StageResolving)
	intent := e.intentFor(req)
	genres := pipeline.ResolveGenres(intent)
	criteria := pipeline.Criteria(intent, genres)

	e.enterStage(run, StageDiscovering)
	candidates, err := e.pipe.Discover(ctx, intent)
	if err != nil {
		perr := e.wrap(err, StageDiscovering)
		e.finish(run, string(perr.Category))
		return nil, perr
	}

	e.enterStage(run, StageFetching)
	hydrated := e.pipe.Hydrate(ctx, candidates, intent.Region)

	e.enterStage(run, StageFiltering)
	filtered := pipeline.Filter(hydrated, criteria, intent.Region)
	if len(filtered) < minSelect {
		perr := e.noResults(run.current, len(filtered))
		e.finish(run, string(perr.Category))
		return nil, perr
	}

	e.enterStage(run, StageRanking)
	ranked := ranking.Rank(filtered, criteria, intent.Region)

	e.enterStage(run, StageSelecting)
	selected := selectTop(ranked)

	e.enterStage(run, StageFormatting)
	recs := formatRecommendations(selected, criteria, intent.Region)

	e.finish(run, "success")
	return recs, nil
}

// intentFor converts a validated request into a pipeline intent.
func (e *Engine) intentFor(req Request) pipeline.Intent {
	region := req.Region
	if region == "" {
		region = e.region
	}
	return pipeline.Intent{
		Mood:       req.Mood,
		Genres:     req.Genres,
		Platforms:  req.Platforms,
		RuntimeMin: req.RuntimeMin,
		RuntimeMax: req.RuntimeMax,
		Year:       req.Year,
		YearFrom:   req.YearFrom,
		YearTo:     req.YearTo,
		Region:     region,
	}
}

// validateRequest checks field-level constraints via the struct validator
// and the cross-field rules on top. Any violation aborts the run.
func (e *Engine) validateRequest(req *Request) *PipelineError {
	if verr := validation.ValidateStruct(req); verr != nil {
		return e.validationError(verr.Error())
	}
	if req.RuntimeMin != nil && req.RuntimeMax != nil && *req.RuntimeMin > *req.RuntimeMax {
		return e.validationError("runtime min must not exceed runtime max")
	}
	if req.YearFrom != nil && req.YearTo != nil && *req.YearFrom > *req.YearTo {
		return e.validationError("year_from must not exceed year_to")
	}
	return nil
}

// validationError builds a ValidationFailed error. The violation text is
// derived from the user's own input, so it is safe to surface.
func (e *Engine) validationError(violation string) *PipelineError {
	return &PipelineError{
		Category: CategoryValidationFailed,
		Message:  userMessages[CategoryValidationFailed] + " " + violation,
		Stage:    StageValidating,
	}
}

func (e *Engine) noResults(stage string, survivors int) *PipelineError {
	perr := &PipelineError{
		Category: CategoryNoResults,
		Message:  userMessages[CategoryNoResults],
		Stage:    stage,
	}
	if e.debug {
		perr.Detail = fmt.Sprintf("filtered candidate count %d below minimum %d", survivors, minSelect)
	}
	return perr
}

// wrap classifies err onto the taxonomy exactly once. An error that is
// already a PipelineError passes through untouched.
func (e *Engine) wrap(err error, stage string) *PipelineError {
	if perr, ok := err.(*PipelineError); ok { //nolint:errorlint // no wrapping occurs upstream
		return perr
	}

	category := Classify(err)
	perr := &PipelineError{
		Category: category,
		Message:  userMessages[category],
		Stage:    stage,
	}
	if e.debug {
		perr.Detail = err.Error()
	}
	return perr
}

// selectTop returns the top clamp(len, 3, 5) ranked items. Callers
// guarantee at least minSelect items.
func selectTop(ranked []models.ScoredItem) []models.ScoredItem {
	n := len(ranked)
	if n > maxSelect {
		n = maxSelect
	}
	return ranked[:n]
}

// Gateway re-exports the provider interface the pipeline consumes, so the
// composition root can wire everything without importing pipeline directly.
type Gateway = pipeline.Gateway

var _ Gateway = (*provider.Client)(nil)
