// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package throttle bounds concurrent outbound calls and retries transient
// rate-limit failures with exponential backoff and jitter.
//
// At most Concurrency operations run at once; excess callers queue FIFO on a
// weighted semaphore. Only rate-limit-classified errors are retried; every
// other error, including per-attempt timeouts, propagates to the caller
// immediately. The client holds no cross-call state beyond the semaphore.
package throttle

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/semaphore"

	"github.com/reelpick/reelpick/internal/logging"
	"github.com/reelpick/reelpick/internal/metrics"
)

// RateLimitedError is implemented by errors that indicate the upstream
// rejected a call for rate-limiting reasons. The provider gateway's
// structured errors implement it; textual matching is the fallback for
// errors from other origins.
type RateLimitedError interface {
	error
	RateLimited() bool
}

// Config holds throttle and retry settings.
type Config struct {
	// Concurrency is the maximum number of operations in flight. Default 10.
	Concurrency int

	// BaseDelay is the backoff base for the first retry. Default 1s.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay. Default 30s.
	MaxDelay time.Duration

	// MaxRetries is the number of retries after the initial attempt.
	// Default 3, so an operation runs at most MaxRetries+1 times.
	MaxRetries int

	// AttemptTimeout bounds each individual attempt. Default 10s.
	AttemptTimeout time.Duration
}

// DefaultConfig returns the default throttle configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:    10,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		MaxRetries:     3,
		AttemptTimeout: 10 * time.Second,
	}
}

// Client is a concurrency-bounded, retrying executor shared by all provider
// I/O. It is safe for concurrent use; all pipeline runs in the process share
// one client, so every run's in-flight calls count against the same bound.
type Client struct {
	cfg Config
	sem *semaphore.Weighted

	// rng drives backoff jitter (protected by rngMu for concurrent use).
	rng   *rand.Rand
	rngMu sync.Mutex
}

// New creates a throttled retry client, applying defaults for zero fields.
func New(cfg Config) *Client {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}

	return &Client{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.Concurrency)),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter only
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Operation is a single unit of provider I/O executed under the throttle.
type Operation[T any] func(ctx context.Context) (T, error)

// Do executes op under the concurrency bound, retrying rate-limited failures
// with exponential backoff. After MaxRetries retries the last error
// propagates unchanged. Each attempt runs under AttemptTimeout; an attempt
// that times out surfaces as a connectivity failure and is not retried here.
func Do[T any](ctx context.Context, c *Client, op Operation[T]) (T, error) {
	var zero T

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer c.sem.Release(1)

	metrics.ThrottleInFlight.Inc()
	defer metrics.ThrottleInFlight.Dec()

	return retry.DoWithData(
		func() (T, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
			defer cancel()
			return op(attemptCtx)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)+1),
		retry.RetryIf(IsRateLimited),
		retry.DelayType(c.backoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			metrics.ThrottleRetries.Inc()
			logging.Warn().
				Uint("attempt", n+1).
				Err(err).
				Msg("rate limited, retrying")
		}),
	)
}

// backoffDelay computes the delay before retry attempt n (0-indexed):
// min(MaxDelay, BaseDelay * 2^n * (1 + jitter)), jitter uniform in [0, 0.25].
func (c *Client) backoffDelay(n uint, _ error, _ *retry.Config) time.Duration {
	// 2^n overflows a duration long before n reaches 50.
	if n > 50 {
		return c.cfg.MaxDelay
	}

	c.rngMu.Lock()
	jitter := c.rng.Float64() * 0.25
	c.rngMu.Unlock()

	delay := float64(c.cfg.BaseDelay) * math.Pow(2, float64(n)) * (1 + jitter)
	if delay < 0 || delay > float64(c.cfg.MaxDelay) {
		return c.cfg.MaxDelay
	}
	return time.Duration(delay)
}

// IsRateLimited classifies err as a retryable rate-limit failure. Structured
// errors are consulted first; the textual check covers errors that did not
// originate in the provider gateway.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var rl RateLimitedError
	if errors.As(err, &rl) {
		return rl.RateLimited()
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}
