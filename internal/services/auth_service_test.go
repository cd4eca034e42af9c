package services_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/hello2himel/urochithi/internal/auth"
	"github.com/hello2himel/urochithi/internal/config"
	"github.com/hello2himel/urochithi/internal/models"
	"github.com/hello2himel/urochithi/internal/ratelimit"
	"github.com/hello2himel/urochithi/internal/recaptcha"
	"github.com/hello2himel/urochithi/internal/services"
	pkglogger "github.com/hello2himel/urochithi/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier implements services.BotVerifier for testing
type fakeVerifier struct {
	result recaptcha.Result
	err    error
}

func (f *fakeVerifier) Verify(ctx context.Context, secret, token, expectedAction string) (recaptcha.Result, error) {
	return f.result, f.err
}

func passingVerifier() *fakeVerifier {
	return &fakeVerifier{result: recaptcha.Result{Success: true, Score: 0.9}}
}

type authFixture struct {
	service  *services.AuthService
	limiter  *ratelimit.Limiter
	verifier *fakeVerifier
	secrets  config.Secrets
	now      time.Time
}

func newAuthFixture(t *testing.T, verifier *fakeVerifier) *authFixture {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	f := &authFixture{
		verifier: verifier,
		secrets: config.Secrets{
			DashboardPIN:    "4271",
			RecaptchaSecret: "recaptcha-secret",
			TimePinRule:     "(hour * 7) + (minute % 10)",
			SessionSecret:   "session-secret-32-characters-ok!",
		},
		now: time.Date(2025, 6, 1, 14, 32, 0, 0, time.UTC),
	}

	f.limiter = ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.DefaultConfig(), logger)
	f.limiter.SetClock(func() time.Time { return f.now })

	f.service = services.NewAuthService(
		f.limiter,
		verifier,
		func() config.Secrets { return f.secrets },
		logger,
		pkglogger.NewAuditLogger(logger),
	)
	f.service.SetClock(func() time.Time { return f.now })
	return f
}

// timePinFor is the code the default rule yields for the fixture's instant
func timePinFor(hour, minute int) string {
	return fmt.Sprintf("%d", hour*7+minute%10)
}

func TestVerifyStaticPIN_Success(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())

	resp, err := f.service.VerifyStaticPIN(context.Background(), "4271", "tok", "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, 4, resp.AttemptsLeft)
}

func TestVerifyStaticPIN_WrongPIN(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())

	_, err := f.service.VerifyStaticPIN(context.Background(), "0000", "tok", "192.0.2.1")

	var credErr *models.CredentialError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 4, credErr.AttemptsLeft)
}

func TestVerifyStaticPIN_LowBotScoreFailsDespiteCorrectPIN(t *testing.T) {
	f := newAuthFixture(t, &fakeVerifier{result: recaptcha.Result{Success: false, Score: 0.2}})

	_, err := f.service.VerifyStaticPIN(context.Background(), "4271", "tok", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrBotRejected)
}

func TestVerifyStaticPIN_MissingTokenIsBotRejection(t *testing.T) {
	f := newAuthFixture(t, &fakeVerifier{err: recaptcha.ErrTokenMissing})

	_, err := f.service.VerifyStaticPIN(context.Background(), "4271", "", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrBotRejected)
}

func TestVerifyStaticPIN_UpstreamFailureMapsToBotRejection(t *testing.T) {
	f := newAuthFixture(t, &fakeVerifier{err: fmt.Errorf("boom: %w", models.ErrUpstream)})

	_, err := f.service.VerifyStaticPIN(context.Background(), "4271", "tok", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrBotRejected)
	assert.NotErrorIs(t, err, models.ErrUpstream)
}

func TestVerifyStaticPIN_MissingPINConfig(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())
	f.secrets.DashboardPIN = ""

	_, err := f.service.VerifyStaticPIN(context.Background(), "4271", "tok", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrServerConfig)
}

func TestVerifyStaticPIN_BotConfigErrorPropagates(t *testing.T) {
	f := newAuthFixture(t, &fakeVerifier{err: fmt.Errorf("no secret: %w", models.ErrServerConfig)})

	_, err := f.service.VerifyStaticPIN(context.Background(), "4271", "tok", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrServerConfig)
}

func TestVerifyStaticPIN_RateLimitAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())
	ctx := context.Background()

	var err error
	for i := 0; i < 5; i++ {
		_, err = f.service.VerifyStaticPIN(ctx, "0000", "tok", "192.0.2.1")
	}

	var rlErr *models.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Positive(t, rlErr.RetryAfter)

	// A correct PIN within the lockout window is still rejected as rate
	// limited, not re-evaluated for credential correctness
	_, err = f.service.VerifyStaticPIN(ctx, "4271", "tok", "192.0.2.1")
	require.ErrorAs(t, err, &rlErr)
	assert.Positive(t, rlErr.RetryAfter)
}

func TestVerifyTimePIN_Success(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())

	resp, err := f.service.VerifyTimePIN(context.Background(), "4271", timePinFor(14, 32), "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, resp.Authenticated)
	assert.NotEmpty(t, resp.Token)

	// The issued token is a valid session credential
	claims, err := auth.NewSessionManager(f.secrets.SessionSecret).Validate(resp.Token, f.now)
	require.NoError(t, err)
	assert.True(t, claims.Authenticated)
}

func TestVerifyTimePIN_NeighborMinutesAccepted(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())
	ctx := context.Background()

	for _, pin := range []string{timePinFor(14, 31), timePinFor(14, 33)} {
		resp, err := f.service.VerifyTimePIN(ctx, "4271", pin, "192.0.2.1")
		require.NoError(t, err, "pin %s", pin)
		assert.True(t, resp.Authenticated)
	}
}

func TestVerifyTimePIN_StaleCodeRejected(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())

	// Code valid 4 minutes in the past falls outside the tolerance set
	_, err := f.service.VerifyTimePIN(context.Background(), "4271", timePinFor(14, 28), "192.0.2.1")

	var credErr *models.CredentialError
	assert.ErrorAs(t, err, &credErr)
}

func TestVerifyTimePIN_NonNumericCodeRejected(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())

	_, err := f.service.VerifyTimePIN(context.Background(), "4271", "not-a-number", "192.0.2.1")

	var credErr *models.CredentialError
	assert.ErrorAs(t, err, &credErr)
}

func TestVerifyTimePIN_RevalidatesStaticPIN(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())

	// A client that forged its way past phase 1 cannot skip the re-check
	_, err := f.service.VerifyTimePIN(context.Background(), "0000", timePinFor(14, 32), "192.0.2.1")

	var credErr *models.CredentialError
	assert.ErrorAs(t, err, &credErr)
}

func TestVerifyTimePIN_RotatedPINInvalidatesInFlightLogin(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())
	ctx := context.Background()

	resp, err := f.service.VerifyStaticPIN(ctx, "4271", "tok", "192.0.2.1")
	require.NoError(t, err)
	require.True(t, resp.Valid)

	// PIN rotated between phases: phase 2 compares against the new value
	f.secrets.DashboardPIN = "9999"

	_, err = f.service.VerifyTimePIN(ctx, "4271", timePinFor(14, 32), "192.0.2.1")
	var credErr *models.CredentialError
	assert.ErrorAs(t, err, &credErr)
}

func TestVerifyTimePIN_SuccessResetsLimiter(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())
	ctx := context.Background()

	// Burn some attempts first
	for i := 0; i < 3; i++ {
		f.service.VerifyStaticPIN(ctx, "0000", "tok", "192.0.2.1")
	}

	resp, err := f.service.VerifyTimePIN(ctx, "4271", timePinFor(14, 32), "192.0.2.1")
	require.NoError(t, err)
	require.True(t, resp.Authenticated)

	// Identity has a fresh, unlocked record again
	check := f.limiter.Check("192.0.2.1")
	assert.True(t, check.Allowed)
	assert.Equal(t, 4, check.AttemptsLeft)
}

func TestVerifyTimePIN_InvalidRuleIsConfigError(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())
	f.secrets.TimePinRule = "hour + second"

	_, err := f.service.VerifyTimePIN(context.Background(), "4271", "1", "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrServerConfig)
}

func TestVerifyTimePIN_MissingSessionSecretIsConfigError(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())
	f.secrets.SessionSecret = ""

	_, err := f.service.VerifyTimePIN(context.Background(), "4271", timePinFor(14, 32), "192.0.2.1")
	assert.ErrorIs(t, err, models.ErrServerConfig)
}

func TestVerifyTimePIN_RateLimited(t *testing.T) {
	f := newAuthFixture(t, passingVerifier())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.service.VerifyTimePIN(ctx, "4271", "0", "192.0.2.1")
	}

	_, err := f.service.VerifyTimePIN(ctx, "4271", timePinFor(14, 32), "192.0.2.1")
	var rlErr *models.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Positive(t, rlErr.RetryAfter)
}
