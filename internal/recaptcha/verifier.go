// Package recaptcha verifies reCAPTCHA v3 proof tokens against the Google
// siteverify endpoint and applies the score and action checks.
package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hello2himel/urochithi/internal/models"
)

const (
	// DefaultEndpoint is the Google siteverify API
	DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

	// ScoreThreshold is the minimum v3 score treated as human (0.0 bot,
	// 1.0 human)
	ScoreThreshold = 0.5

	defaultTimeout = 5 * time.Second
)

// ErrTokenMissing is returned when the client supplied no proof token.
var ErrTokenMissing = errors.New("recaptcha token required")

// Result is the verdict for one token.
type Result struct {
	Success    bool
	Score      float64
	ErrorCodes []string
}

// siteverifyResponse mirrors the upstream response body.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	Hostname   string   `json:"hostname,omitempty"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Verifier calls the external verification service. The outbound call is
// the only blocking I/O in the auth core; its client carries a bounded
// timeout and a timeout counts as a failed verification, never a pass.
type Verifier struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewVerifier creates a Verifier against the default Google endpoint.
func NewVerifier(logger *slog.Logger) *Verifier {
	return NewVerifierWithEndpoint(DefaultEndpoint, logger)
}

// NewVerifierWithEndpoint creates a Verifier against a custom endpoint.
// Used by tests.
func NewVerifierWithEndpoint(endpoint string, logger *slog.Logger) *Verifier {
	return &Verifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger,
	}
}

// Verify checks a proof token with the upstream service.
//
// A missing secret is a configuration error (models.ErrServerConfig); a
// missing token fails fast with ErrTokenMissing. Upstream network or HTTP
// failures come back as models.ErrUpstream so callers can log detail
// server-side while clients only ever see a generic verification failure.
// An explicit upstream failure, an action label differing from
// expectedAction, or a score below ScoreThreshold all yield Success=false.
func (v *Verifier) Verify(ctx context.Context, secret, token, expectedAction string) (Result, error) {
	if secret == "" {
		return Result{}, fmt.Errorf("recaptcha secret not configured: %w", models.ErrServerConfig)
	}
	if token == "" {
		return Result{}, ErrTokenMissing
	}

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("building siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("recaptcha request failed", slog.Any("error", err))
		return Result{}, fmt.Errorf("siteverify call: %w", models.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.logger.Error("recaptcha API error", slog.Int("status", resp.StatusCode))
		return Result{}, fmt.Errorf("siteverify status %d: %w", resp.StatusCode, models.ErrUpstream)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		v.logger.Error("recaptcha response decode failed", slog.Any("error", err))
		return Result{}, fmt.Errorf("siteverify decode: %w", models.ErrUpstream)
	}

	result := Result{ErrorCodes: body.ErrorCodes}
	if body.Score != nil {
		result.Score = *body.Score
	}

	if !body.Success {
		v.logger.Warn("recaptcha verification failed", slog.Any("error_codes", body.ErrorCodes))
		return result, nil
	}

	// Action mismatch defends against token replay across different forms
	if body.Action != "" && body.Action != expectedAction {
		v.logger.Warn("recaptcha action mismatch",
			slog.String("action", body.Action),
			slog.String("expected", expectedAction))
		return result, nil
	}

	if body.Score != nil && *body.Score < ScoreThreshold {
		v.logger.Warn("recaptcha score too low", slog.Float64("score", *body.Score))
		return result, nil
	}

	result.Success = true
	return result, nil
}
