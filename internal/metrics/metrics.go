// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package metrics provides Prometheus instrumentation for Reelpick:
// cache efficiency, provider call volume and latency, circuit breaker
// state, throttle retries, and pipeline outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelpick_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelpick_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelpick_cache_evictions_total",
			Help: "Total number of cache entries removed by expiry or deletion",
		},
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelpick_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	// Provider gateway metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelpick_provider_requests_total",
			Help: "Total number of metadata provider requests",
		},
		[]string{"operation", "outcome"}, // operation: discover, detail, availability
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelpick_provider_request_duration_seconds",
			Help:    "Duration of metadata provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelpick_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelpick_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Throttle metrics
	ThrottleRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelpick_throttle_retries_total",
			Help: "Total number of rate-limit retries performed by the throttled client",
		},
	)

	ThrottleInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelpick_throttle_in_flight",
			Help: "Number of operations currently holding a throttle slot",
		},
	)

	// Pipeline metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelpick_pipeline_runs_total",
			Help: "Total number of recommendation pipeline runs by outcome",
		},
		[]string{"outcome"}, // success or the error category
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelpick_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	CandidatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelpick_candidates_dropped_total",
			Help: "Candidates dropped during hydration by reason",
		},
		[]string{"reason"}, // fetch_error, no_availability
	)
)
