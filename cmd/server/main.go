// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Command server runs the recommendation API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/reelpick/reelpick/internal/api"
	"github.com/reelpick/reelpick/internal/cache"
	"github.com/reelpick/reelpick/internal/config"
	"github.com/reelpick/reelpick/internal/llm"
	"github.com/reelpick/reelpick/internal/logging"
	"github.com/reelpick/reelpick/internal/pipeline"
	"github.com/reelpick/reelpick/internal/provider"
	"github.com/reelpick/reelpick/internal/recommend"
	"github.com/reelpick/reelpick/internal/throttle"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logging.Writer(cfg.Logging.Output),
	})
	logging.Info().
		Str("region", cfg.Provider.Region).
		Int("port", cfg.Server.Port).
		Msg("starting reelpick")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared infrastructure: one cache and one throttle client for every
	// scope, so all runs compete for the same concurrency bound.
	store := cache.New(cfg.Cache.TTL)
	if cfg.Cache.JanitorInterval > 0 {
		store.StartJanitor(ctx, cfg.Cache.JanitorInterval)
	}
	th := throttle.New(throttle.Config{
		Concurrency:    cfg.Throttle.Concurrency,
		BaseDelay:      cfg.Throttle.BaseDelay,
		MaxDelay:       cfg.Throttle.MaxDelay,
		MaxRetries:     cfg.Throttle.MaxRetries,
		AttemptTimeout: cfg.Throttle.AttemptTimeout,
	})

	factory := func(scope cache.Scope) *recommend.Engine {
		gateway, err := provider.New(
			cfg.Provider.BaseURL,
			cfg.Provider.AuthToken,
			store,
			th,
			provider.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Timeout}),
			provider.WithScope(scope),
		)
		if err != nil {
			// The base URL was validated at config load; this cannot fail.
			logging.Fatal().Err(err).Msg("provider construction failed")
		}
		return recommend.NewEngine(
			pipeline.New(gateway),
			store,
			cfg.Provider.Region,
			recommend.WithDebug(cfg.Server.Debug),
		)
	}

	var presenter *llm.Presenter
	if cfg.LLM.Enabled {
		presenter = llm.New(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	}

	server := api.NewServer(cfg.Server, factory, presenter)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logging.Info().Msg("stopped cleanly")
	return nil
}
