// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies a gateway failure so the orchestrator can map it onto
// its error taxonomy structurally instead of matching message substrings.
type ErrorCode string

const (
	// CodeRateLimited marks an upstream HTTP 429. The only retryable class.
	CodeRateLimited ErrorCode = "rate_limited"

	// CodeUnauthorized marks an upstream HTTP 401/403 (bad credentials).
	CodeUnauthorized ErrorCode = "unauthorized"

	// CodeTimeout marks an attempt that hit its deadline or was cancelled.
	CodeTimeout ErrorCode = "timeout"

	// CodeMalformed marks a response body that could not be decoded.
	CodeMalformed ErrorCode = "malformed"

	// CodeUnavailable marks transport failures and upstream 5xx responses.
	CodeUnavailable ErrorCode = "unavailable"

	// CodeOther marks everything else.
	CodeOther ErrorCode = "other"
)

// Error is a classified provider gateway failure. The message embeds the
// HTTP status and body text where available.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// RateLimited implements throttle.RateLimitedError.
func (e *Error) RateLimited() bool {
	return e.Code == CodeRateLimited
}

// statusError classifies a non-2xx upstream response.
func statusError(status int, path, body string) *Error {
	msg := fmt.Sprintf("unexpected status %d from %s: %s", status, path, truncate(body, 256))

	code := CodeOther
	switch {
	case status == 429:
		code = CodeRateLimited
	case status == 401 || status == 403:
		code = CodeUnauthorized
	case status >= 500:
		code = CodeUnavailable
	}

	return &Error{Code: code, Status: status, Message: msg}
}

// transportError classifies a transport-level failure. Deadline expiry and
// cancellation are timeouts; everything else is a connectivity failure.
func transportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Code: CodeTimeout, Message: fmt.Sprintf("request timed out: %v", err)}
	}
	return &Error{Code: CodeUnavailable, Message: fmt.Sprintf("connection failed: %v", err)}
}

// malformedError classifies an undecodable response body.
func malformedError(path string, err error) *Error {
	return &Error{Code: CodeMalformed, Message: fmt.Sprintf("malformed response from %s: %v", path, err)}
}

// truncate bounds body text embedded in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
