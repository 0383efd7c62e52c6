// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/reelpick/reelpick/internal/cache"
	"github.com/reelpick/reelpick/internal/logging"
	"github.com/reelpick/reelpick/internal/models"
	"github.com/reelpick/reelpick/internal/recommend"
)

// recommendationRequest is the request body. The embedded recommend.Request
// carries the pipeline input; the scope fields isolate cache entries per
// tenant/user/session; format selects the response rendering.
type recommendationRequest struct {
	recommend.Request
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Format    string `json:"format"` // "json" (default) or "text"
}

type recommendationResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
	Text            string                  `json:"text,omitempty"`
}

type errorBody struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// categoryStatus maps pipeline error categories to HTTP status codes.
var categoryStatus = map[recommend.Category]int{
	recommend.CategoryValidationFailed:    http.StatusBadRequest,
	recommend.CategoryInvalidCredentials:  http.StatusBadGateway,
	recommend.CategoryRateLimited:         http.StatusTooManyRequests,
	recommend.CategoryUpstreamUnavailable: http.StatusServiceUnavailable,
	recommend.CategoryNoResults:           http.StatusNotFound,
	recommend.CategoryUnknown:             http.StatusInternalServerError,
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Category: string(recommend.CategoryValidationFailed),
			Message:  "The request body is not valid JSON.",
		}})
		return
	}

	scope := cache.Scope{TenantID: req.TenantID, UserID: req.UserID, SessionID: req.SessionID}
	engine := s.engine(scope)

	recs, perr := engine.Recommend(r.Context(), req.Request)
	if perr != nil {
		status, ok := categoryStatus[perr.Category]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorResponse{Error: errorBody{
			Category: string(perr.Category),
			Message:  perr.Message,
			Detail:   perr.Detail,
		}})
		return
	}

	resp := recommendationResponse{Recommendations: recs}
	if req.Format == "text" {
		resp.Text = s.presenter.Present(r.Context(), recs)
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}
