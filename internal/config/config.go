// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package config loads layered configuration: struct defaults, then an
// optional YAML file, then REELPICK_-prefixed environment variables, each
// layer overriding the previous. The rest of the application receives the
// validated Config and never reads environment variables directly.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority
// order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelpick/config.yaml",
	"/etc/reelpick/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "REELPICK_CONFIG_PATH"

// envPrefix namespaces every environment variable the loader reads.
const envPrefix = "REELPICK_"

// Config is the root configuration.
type Config struct {
	Provider ProviderConfig `koanf:"provider"`
	Cache    CacheConfig    `koanf:"cache"`
	Throttle ThrottleConfig `koanf:"throttle"`
	Server   ServerConfig   `koanf:"server"`
	LLM      LLMConfig      `koanf:"llm"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ProviderConfig configures the upstream metadata gateway.
type ProviderConfig struct {
	BaseURL   string        `koanf:"base_url"` // must be https
	AuthToken string        `koanf:"auth_token"`
	Region    string        `koanf:"region"` // ISO 3166-1 alpha-2
	Timeout   time.Duration `koanf:"timeout"`
}

// CacheConfig configures the in-memory TTL cache.
type CacheConfig struct {
	TTL             time.Duration `koanf:"ttl"`
	JanitorInterval time.Duration `koanf:"janitor_interval"` // 0 disables the janitor
}

// ThrottleConfig configures the throttled retry client.
type ThrottleConfig struct {
	Concurrency    int           `koanf:"concurrency"`
	BaseDelay      time.Duration `koanf:"base_delay"`
	MaxDelay       time.Duration `koanf:"max_delay"`
	MaxRetries     int           `koanf:"max_retries"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	Debug             bool          `koanf:"debug"` // attaches diagnostic detail to error responses
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LLMConfig configures the optional text-generation presenter.
type LLMConfig struct {
	Enabled bool          `koanf:"enabled"`
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
	Output string `koanf:"output"` // stdout or stderr
}

// defaultConfig returns all default values. Defaults are applied first and
// then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:   "https://api.themoviedb.org/3",
			AuthToken: "",
			Region:    "US",
			Timeout:   15 * time.Second,
		},
		Cache: CacheConfig{
			TTL:             5 * time.Minute,
			JanitorInterval: time.Minute,
		},
		Throttle: ThrottleConfig{
			Concurrency:    10,
			BaseDelay:      time.Second,
			MaxDelay:       30 * time.Second,
			MaxRetries:     3,
			AttemptTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			Debug:             false,
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{},
		},
		LLM: LLMConfig{
			Enabled: false,
			APIKey:  "",
			Model:   "gemini-2.0-flash",
			Timeout: 20 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file that exists, honoring the
// path override variable.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to config paths:
// REELPICK_PROVIDER_BASE_URL -> provider.base_url. Only the first segment
// becomes a section; later underscores stay part of the key.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// sliceConfigPaths lists paths whose env values arrive comma-separated.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		str, ok := val.(string)
		if !ok || str == "" {
			continue
		}
		parts := strings.Split(str, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks the invariants the rest of the application relies on.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		return fmt.Errorf("provider.base_url must use https, got %q", c.Provider.BaseURL)
	}
	if c.Provider.AuthToken == "" {
		return fmt.Errorf("provider.auth_token is required")
	}
	if len(c.Provider.Region) != 2 {
		return fmt.Errorf("provider.region must be a two-letter country code, got %q", c.Provider.Region)
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	if c.Throttle.Concurrency <= 0 {
		return fmt.Errorf("throttle.concurrency must be positive")
	}
	if c.Throttle.MaxRetries < 0 {
		return fmt.Errorf("throttle.max_retries must not be negative")
	}
	if c.Throttle.BaseDelay <= 0 || c.Throttle.MaxDelay < c.Throttle.BaseDelay {
		return fmt.Errorf("throttle delays invalid: base %v, max %v", c.Throttle.BaseDelay, c.Throttle.MaxDelay)
	}
	if c.Throttle.AttemptTimeout <= 0 {
		return fmt.Errorf("throttle.attempt_timeout must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}

	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required when llm.enabled is true")
	}
	return nil
}
