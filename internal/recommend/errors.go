// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package recommend

import (
	"errors"
	"strings"

	"github.com/reelpick/reelpick/internal/provider"
)

// Category is the closed error taxonomy the orchestrator exposes. No other
// categories are permitted.
type Category string

const (
	CategoryInvalidCredentials  Category = "invalid_credentials"
	CategoryRateLimited         Category = "rate_limited"
	CategoryUpstreamUnavailable Category = "upstream_unavailable"
	CategoryValidationFailed    Category = "validation_failed"
	CategoryNoResults           Category = "no_results"
	CategoryUnknown             Category = "unknown"
)

// userMessages carries the fixed, non-leaking message per category. Raw
// upstream text never reaches these strings.
var userMessages = map[Category]string{
	CategoryInvalidCredentials:  "The movie data service rejected our credentials. Please check the configured API token.",
	CategoryRateLimited:         "The movie data service is rate limiting requests. Please try again in a moment.",
	CategoryUpstreamUnavailable: "The movie data service is currently unreachable. Please try again later.",
	CategoryValidationFailed:    "The request contains invalid input.",
	CategoryNoResults:           "No movies matched your preferences. Try loosening the filters.",
	CategoryUnknown:             "Something went wrong while building recommendations.",
}

// PipelineError is the single error shape the orchestrator returns. Message
// is always safe to show a user; Detail carries the raw diagnostic and is
// populated only when the engine runs in debug mode.
type PipelineError struct {
	Category Category
	Message  string
	Detail   string
	Stage    string
}

// Error implements the error interface with the user-safe message.
func (e *PipelineError) Error() string {
	return e.Message
}

// Classify maps a failure onto the taxonomy. Structured provider codes are
// consulted first; the textual rules below are the fallback for errors that
// did not originate in the gateway. First matching rule wins, in fixed
// order: credential, rate limit, connectivity, validation, unknown.
func Classify(err error) Category {
	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Code {
		case provider.CodeUnauthorized:
			return CategoryInvalidCredentials
		case provider.CodeRateLimited:
			return CategoryRateLimited
		case provider.CodeTimeout, provider.CodeUnavailable:
			return CategoryUpstreamUnavailable
		}
		return CategoryUnknown
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "unauthorized", "invalid api key", "credential", "forbidden", "401", "403"):
		return CategoryInvalidCredentials
	case containsAny(msg, "429", "rate limit", "too many requests"):
		return CategoryRateLimited
	case containsAny(msg, "timeout", "timed out", "deadline", "connection", "unreachable", "network"):
		return CategoryUpstreamUnavailable
	case containsAny(msg, "validation", "invalid", "must be", "must not"):
		return CategoryValidationFailed
	default:
		return CategoryUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
