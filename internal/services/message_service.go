package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hello2himel/urochithi/internal/models"
	"github.com/sethvargo/go-retry"
)

const sheetTimeout = 10 * time.Second

// MessageService forwards letters to the spreadsheet webhook and reads them
// back for the dashboard. The webhook URL comes from the secrets source so
// it is re-read per request like the other environment configuration.
type MessageService struct {
	client  *http.Client
	secrets SecretsSource
	logger  *slog.Logger
}

// NewMessageService creates a MessageService.
func NewMessageService(secrets SecretsSource, logger *slog.Logger) *MessageService {
	return &MessageService{
		client:  &http.Client{Timeout: sheetTimeout},
		secrets: secrets,
		logger:  logger,
	}
}

// sheetListResponse mirrors the webhook's GET payload.
type sheetListResponse struct {
	Messages []models.Message `json:"messages"`
}

// Submit forwards one letter to the spreadsheet webhook. Transient upstream
// failures are retried with capped exponential backoff; the webhook URL and
// upstream error bodies never reach the caller.
func (s *MessageService) Submit(ctx context.Context, msg models.Message) error {
	url := s.secrets().GScriptURL
	if url == "" {
		s.logger.Error("GSCRIPT_URL environment variable not set")
		return fmt.Errorf("message store not configured: %w", models.ErrServerConfig)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("sheet webhook status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("sheet webhook status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("message delivery failed", slog.Any("error", err))
		return fmt.Errorf("delivering message: %w", models.ErrUpstream)
	}

	return nil
}

// List fetches all stored letters from the spreadsheet webhook.
func (s *MessageService) List(ctx context.Context) ([]models.Message, error) {
	url := s.secrets().GScriptURL
	if url == "" {
		s.logger.Error("GSCRIPT_URL environment variable not set")
		return nil, fmt.Errorf("message store not configured: %w", models.ErrServerConfig)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building sheet request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("message fetch failed", slog.Any("error", err))
		return nil, fmt.Errorf("fetching messages: %w", models.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Error("message fetch bad status", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("sheet webhook status %d: %w", resp.StatusCode, models.ErrUpstream)
	}

	var body sheetListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.logger.Error("message fetch decode failed", slog.Any("error", err))
		return nil, fmt.Errorf("decoding messages: %w", models.ErrUpstream)
	}

	if body.Messages == nil {
		return []models.Message{}, nil
	}
	return body.Messages, nil
}
