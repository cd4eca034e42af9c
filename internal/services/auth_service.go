package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hello2himel/urochithi/internal/auth"
	"github.com/hello2himel/urochithi/internal/config"
	"github.com/hello2himel/urochithi/internal/models"
	"github.com/hello2himel/urochithi/internal/ratelimit"
	"github.com/hello2himel/urochithi/internal/recaptcha"
	"github.com/hello2himel/urochithi/internal/timepin"
	pkglogger "github.com/hello2himel/urochithi/pkg/logger"
)

// BotActionLogin is the reCAPTCHA action label bound to the dashboard login
// form. A token minted for any other form fails the action check.
const BotActionLogin = "dashboard_login"

// BotVerifier is the external bot-score check used by phase 1.
type BotVerifier interface {
	Verify(ctx context.Context, secret, token, expectedAction string) (recaptcha.Result, error)
}

// SecretsSource yields the current auth secrets. Called on every request.
type SecretsSource func() config.Secrets

// Phase1Response is returned when the static PIN check passes.
type Phase1Response struct {
	Valid        bool
	AttemptsLeft int
}

// Phase2Response is returned when the time PIN check passes and a session
// is issued.
type Phase2Response struct {
	Authenticated bool
	Token         string
}

// AuthService sequences the two-step dashboard login: rate limit check,
// bot-score check, then secret comparison for each phase. Phase 2 success
// clears the limiter record and issues the session token.
type AuthService struct {
	limiter  *ratelimit.Limiter
	verifier BotVerifier
	secrets  SecretsSource
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
	now      func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(
	limiter *ratelimit.Limiter,
	verifier BotVerifier,
	secrets SecretsSource,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		limiter:  limiter,
		verifier: verifier,
		secrets:  secrets,
		logger:   logger,
		audit:    audit,
		now:      time.Now,
	}
}

// SetClock overrides the service's time source. Used by tests.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// VerifyStaticPIN runs phase 1: limiter, bot score, then the static PIN.
//
// A bot-score failure does not consume a second rate-limit slot; the
// attempt was already recorded by the limiter check itself.
func (s *AuthService) VerifyStaticPIN(ctx context.Context, staticPin, recaptchaToken, identity string) (*Phase1Response, error) {
	check := s.limiter.Check(identity)
	if !check.Allowed {
		return nil, &models.RateLimitError{RetryAfter: check.RetryAfter}
	}

	secrets := s.secrets()
	if secrets.DashboardPIN == "" {
		s.logger.Error("DASHBOARD_PIN environment variable not set")
		return nil, fmt.Errorf("static pin not configured: %w", models.ErrServerConfig)
	}

	botResult, err := s.verifier.Verify(ctx, secrets.RecaptchaSecret, recaptchaToken, BotActionLogin)
	if err != nil {
		if errors.Is(err, models.ErrServerConfig) {
			return nil, err
		}
		if errors.Is(err, recaptcha.ErrTokenMissing) {
			s.auditFailure("bot_score", identity, "token missing", 0)
			return nil, fmt.Errorf("missing proof token: %w", models.ErrBotRejected)
		}
		// Upstream detail stays in server logs; the caller only learns that
		// verification failed
		s.logger.Error("bot verification upstream failure", slog.Any("error", err))
		s.auditFailure("bot_score", identity, "upstream failure", 0)
		return nil, models.ErrBotRejected
	}
	if !botResult.Success {
		s.auditFailure("bot_score", identity, strings.Join(botResult.ErrorCodes, ","), botResult.Score)
		return nil, models.ErrBotRejected
	}

	if !auth.SecureCompare(staticPin, secrets.DashboardPIN) {
		s.logger.Debug("static pin rejected",
			slog.String("identity", identity),
			slog.String("submitted", pkglogger.MaskedPIN(staticPin)))
		s.auditFailure("static_pin", identity, "pin mismatch", botResult.Score)
		return nil, &models.CredentialError{AttemptsLeft: check.AttemptsLeft}
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "static_pin",
		Identity:  identity,
		Success:   true,
		BotScore:  botResult.Score,
	})

	return &Phase1Response{Valid: true, AttemptsLeft: check.AttemptsLeft}, nil
}

// VerifyTimePIN runs phase 2: limiter, static PIN re-check, then the
// rolling time PIN against the 3-minute tolerance set. The phase-1 PIN is
// re-validated against the currently configured value because client-held
// state is never trusted across phases.
func (s *AuthService) VerifyTimePIN(ctx context.Context, staticPin, timePin, identity string) (*Phase2Response, error) {
	check := s.limiter.Check(identity)
	if !check.Allowed {
		return nil, &models.RateLimitError{RetryAfter: check.RetryAfter}
	}

	secrets := s.secrets()
	if secrets.DashboardPIN == "" {
		s.logger.Error("DASHBOARD_PIN environment variable not set")
		return nil, fmt.Errorf("static pin not configured: %w", models.ErrServerConfig)
	}

	if !auth.SecureCompare(staticPin, secrets.DashboardPIN) {
		s.auditFailure("time_pin", identity, "static pin mismatch", 0)
		return nil, &models.CredentialError{AttemptsLeft: check.AttemptsLeft}
	}

	rule, err := timepin.Parse(secrets.TimePinRule)
	if err != nil {
		s.logger.Error("invalid time pin rule", slog.Any("error", err))
		return nil, fmt.Errorf("time pin rule: %w", models.ErrServerConfig)
	}

	now := s.now()
	valid, err := timepin.CurrentValidSecrets(rule, now)
	if err != nil {
		s.logger.Error("time pin rule evaluation failed", slog.Any("error", err))
		return nil, fmt.Errorf("time pin rule: %w", models.ErrServerConfig)
	}

	submitted, err := strconv.Atoi(strings.TrimSpace(timePin))
	if err != nil || !containsInt(valid, submitted) {
		s.auditFailure("time_pin", identity, "time pin mismatch", 0)
		return nil, &models.CredentialError{AttemptsLeft: check.AttemptsLeft}
	}

	token, err := auth.NewSessionManager(secrets.SessionSecret).Issue(now)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.Any("error", err))
		return nil, fmt.Errorf("session issue: %w", models.ErrServerConfig)
	}

	// Full two-step success clears the abuse record for this identity
	s.limiter.Reset(identity)

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "time_pin",
		Identity:  identity,
		Success:   true,
	})

	return &Phase2Response{Authenticated: true, Token: token}, nil
}

func (s *AuthService) auditFailure(event, identity, reason string, score float64) {
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     event,
		Identity:      identity,
		Success:       false,
		FailureReason: reason,
		BotScore:      score,
	})
}

func containsInt(vals []int, v int) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
