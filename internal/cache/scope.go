// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package cache

import "strings"

// Scope namespaces cache keys by tenant, user and session. Any subset of the
// three may be set; the encoded segment order is always tenant, then user,
// then session. The zero Scope is the unscoped namespace.
//
// Key isolation is the cache's sole security property: two scopes with
// different encoded prefixes never observe each other's entries, even for an
// identical base key.
type Scope struct {
	TenantID  string
	UserID    string
	SessionID string
}

// IsZero reports whether the scope carries no namespace segments.
func (s Scope) IsZero() bool {
	return s.TenantID == "" && s.UserID == "" && s.SessionID == ""
}

// Key encodes the scope into base, producing
// "tenant:<id>:user:<id>:session:<id>:<base>" with omitted segments absent.
func (s Scope) Key(base string) string {
	if s.IsZero() {
		return base
	}

	var b strings.Builder
	if s.TenantID != "" {
		b.WriteString("tenant:")
		b.WriteString(s.TenantID)
		b.WriteByte(':')
	}
	if s.UserID != "" {
		b.WriteString("user:")
		b.WriteString(s.UserID)
		b.WriteByte(':')
	}
	if s.SessionID != "" {
		b.WriteString("session:")
		b.WriteString(s.SessionID)
		b.WriteByte(':')
	}
	b.WriteString(base)
	return b.String()
}
