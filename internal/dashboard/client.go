// Package dashboard implements the terminal client for the letters
// dashboard: the two-phase login flow and authenticated message listing.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hello2himel/urochithi/internal/models"
)

const defaultRequestTimeout = 10 * time.Second

// PinResult is the outcome of a verification call, phase 1 or phase 2.
type PinResult struct {
	Valid         bool   `json:"valid"`
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token"`
	Error         string `json:"error"`
	AttemptsLeft  *int   `json:"attemptsLeft"`
	RetryAfter    *int   `json:"retryAfter"`
}

// Client talks to the authentication and message endpoints.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

// VerifyStaticPin runs the phase 1 check.
func (c *Client) VerifyStaticPin(ctx context.Context, staticPin, captchaToken string) (*PinResult, error) {
	body := map[string]string{
		"staticPin":      staticPin,
		"recaptchaToken": captchaToken,
	}
	return c.postPin(ctx, "/api/auth/verify-static-pin", body)
}

// VerifyTimePin runs the phase 2 check. The static PIN from phase 1 is
// re-submitted alongside the time PIN.
func (c *Client) VerifyTimePin(ctx context.Context, staticPin, timePin string) (*PinResult, error) {
	body := map[string]string{
		"staticPin": staticPin,
		"timePin":   timePin,
	}
	return c.postPin(ctx, "/api/auth/verify-time-pin", body)
}

func (c *Client) postPin(ctx context.Context, path string, body map[string]string) (*PinResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	var result PinResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", models.ErrUpstream, err)
	}
	return &result, nil
}

// Messages fetches the stored letters using the session token.
func (c *Client) Messages(ctx context.Context, token string) ([]models.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/messages", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, models.ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: message endpoint returned %d", models.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding messages: %v", models.ErrUpstream, err)
	}
	if payload.Messages == nil {
		payload.Messages = []models.Message{}
	}
	return payload.Messages, nil
}
