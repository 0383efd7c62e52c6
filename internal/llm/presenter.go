// Reelpick - Resilient Streaming Movie Recommendations
// Copyright 2026 Reelpick contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelpick/reelpick

// Package llm renders recommendations as friendly prose via the Gemini
// generateContent API. It is strictly optional: any failure, and the caller
// falls back to the deterministic plain-text rendering. The presenter never
// influences which movies are recommended.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/reelpick/reelpick/internal/logging"
	"github.com/reelpick/reelpick/internal/models"
	"github.com/reelpick/reelpick/internal/recommend"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Presenter turns recommendations into prose. Safe for concurrent use.
type Presenter struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

// Option customizes a Presenter.
type Option func(*Presenter)

// WithBaseURL overrides the API base URL. Tests point this at a local
// server.
func WithBaseURL(baseURL string) Option {
	return func(p *Presenter) { p.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(p *Presenter) { p.httpc = httpc }
}

// New creates a presenter for the given model.
func New(apiKey, model string, timeout time.Duration, opts ...Option) *Presenter {
	p := &Presenter{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsConfigured reports whether the presenter has credentials to use.
func (p *Presenter) IsConfigured() bool {
	return p != nil && p.apiKey != ""
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Present renders recommendations as prose, falling back to the
// deterministic text when the model is unavailable or misbehaves. The
// returned string is always non-empty for a non-empty input.
func (p *Presenter) Present(ctx context.Context, recs []models.Recommendation) string {
	fallback := recommend.FallbackText(recs)
	if !p.IsConfigured() || len(recs) == 0 {
		return fallback
	}

	text, err := p.generate(ctx, presentPrompt(recs))
	if err != nil {
		logging.Warn().Err(err).Msg("llm presentation failed, using fallback text")
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}

// presentPrompt builds the instruction for the model. The facts are passed
// verbatim; the model must not invent titles or platforms.
func presentPrompt(recs []models.Recommendation) string {
	var b strings.Builder
	b.WriteString("You are a movie concierge. Rewrite the following recommendations ")
	b.WriteString("as short, warm prose, one paragraph per movie. Use only the facts ")
	b.WriteString("given; do not invent titles, platforms or years.\n\n")
	b.WriteString(recommend.FallbackText(recs))
	return b.String()
}

func (p *Presenter) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1024,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("model error %d: %s", genResp.Error.Code, genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
