// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package api exposes the recommendation engine over HTTP with a chi
// router. Pipeline error categories map onto status codes here and nowhere
// else.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelpick/reelpick/internal/cache"
	"github.com/reelpick/reelpick/internal/config"
	"github.com/reelpick/reelpick/internal/llm"
	"github.com/reelpick/reelpick/internal/logging"
	"github.com/reelpick/reelpick/internal/recommend"
)

// EngineFactory builds (or returns) the engine for a cache scope. The
// composition root supplies one; the server memoizes per scope so repeated
// requests for the same tenant/user/session reuse one engine and breaker.
type EngineFactory func(scope cache.Scope) *recommend.Engine

// Server handles HTTP traffic for the recommendation API.
type Server struct {
	cfg       config.ServerConfig
	engineFor EngineFactory
	presenter *llm.Presenter
	startedAt time.Time

	mu      sync.RWMutex
	engines map[cache.Scope]*recommend.Engine
}

// NewServer creates the HTTP server. presenter may be nil; text rendering
// then always uses the deterministic fallback.
func NewServer(cfg config.ServerConfig, factory EngineFactory, presenter *llm.Presenter) *Server {
	return &Server{
		cfg:       cfg,
		engineFor: factory,
		presenter: presenter,
		startedAt: time.Now(),
		engines:   make(map[cache.Scope]*recommend.Engine),
	}
}

// engine returns the memoized engine for a scope, creating it on first use.
func (s *Server) engine(scope cache.Scope) *recommend.Engine {
	s.mu.RLock()
	e, ok := s.engines[scope]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[scope]; ok {
		return e
	}
	e = s.engineFor(scope)
	s.engines[scope] = e
	return e
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:           300,
		AllowCredentials: false,
	}))
	if s.cfg.RateLimitRequests > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimitRequests, s.cfg.RateLimitWindow))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommendations", s.handleRecommendations)
		r.Get("/health", s.handleHealth)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestID ensures every request carries an X-Request-ID, generating one
// when the client did not supply it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", ww.Header().Get("X-Request-ID")).
			Msg("request")
	})
}
