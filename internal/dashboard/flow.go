package dashboard

import (
	"context"
	"fmt"
	"time"
)

// LoginState tracks where the user is in the two-phase login.
type LoginState int

const (
	AwaitingPhase1 LoginState = iota
	AwaitingPhase2
	Authenticated
)

func (s LoginState) String() string {
	switch s {
	case AwaitingPhase1:
		return "awaiting_static_pin"
	case AwaitingPhase2:
		return "awaiting_time_pin"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// PinVerifier is the subset of Client the flow needs.
type PinVerifier interface {
	VerifyStaticPin(ctx context.Context, staticPin, captchaToken string) (*PinResult, error)
	VerifyTimePin(ctx context.Context, staticPin, timePin string) (*PinResult, error)
}

// Flow drives the login state machine. A failed attempt stays in its phase;
// only an explicit Back drops the held phase 1 PIN. When the server reports
// a lockout the flow mirrors it locally and refuses to send requests that
// would fail anyway.
type Flow struct {
	verifier PinVerifier

	state       LoginState
	staticPin   string
	token       string
	lockedUntil time.Time
	now         func() time.Time
}

// NewFlow creates a flow in the phase 1 state.
func NewFlow(verifier PinVerifier) *Flow {
	return &Flow{
		verifier: verifier,
		state:    AwaitingPhase1,
		now:      time.Now,
	}
}

// SetClock overrides the flow's time source. Used by tests.
func (f *Flow) SetClock(now func() time.Time) {
	f.now = now
}

// State returns the current login state.
func (f *Flow) State() LoginState {
	return f.state
}

// Token returns the session token once authenticated.
func (f *Flow) Token() string {
	return f.token
}

// LockedFor returns how long the mirrored server lockout still has to run,
// or zero when no lockout is active.
func (f *Flow) LockedFor() time.Duration {
	remaining := f.lockedUntil.Sub(f.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SubmitPhase1 verifies the static PIN. On success the PIN is held for
// phase 2 and the flow advances.
func (f *Flow) SubmitPhase1(ctx context.Context, staticPin, captchaToken string) (*PinResult, error) {
	if f.state != AwaitingPhase1 {
		return nil, fmt.Errorf("static PIN already verified")
	}
	if remaining := f.LockedFor(); remaining > 0 {
		return f.lockedResult(remaining), nil
	}

	result, err := f.verifier.VerifyStaticPin(ctx, staticPin, captchaToken)
	if err != nil {
		return nil, err
	}
	f.recordLockout(result)

	if result.Valid {
		f.staticPin = staticPin
		f.state = AwaitingPhase2
	}
	return result, nil
}

// SubmitPhase2 verifies the time PIN using the held static PIN. On success
// the flow is authenticated and the held PIN is dropped.
func (f *Flow) SubmitPhase2(ctx context.Context, timePin string) (*PinResult, error) {
	if f.state != AwaitingPhase2 {
		return nil, fmt.Errorf("static PIN not verified yet")
	}
	if remaining := f.LockedFor(); remaining > 0 {
		return f.lockedResult(remaining), nil
	}

	result, err := f.verifier.VerifyTimePin(ctx, f.staticPin, timePin)
	if err != nil {
		return nil, err
	}
	f.recordLockout(result)

	if result.Authenticated {
		f.token = result.Token
		f.staticPin = ""
		f.state = Authenticated
	}
	return result, nil
}

// Back returns to phase 1 and drops the held static PIN.
func (f *Flow) Back() {
	if f.state == AwaitingPhase2 {
		f.staticPin = ""
		f.state = AwaitingPhase1
	}
}

// Reset drops all login progress, including an authenticated session.
func (f *Flow) Reset() {
	f.staticPin = ""
	f.token = ""
	f.state = AwaitingPhase1
}

func (f *Flow) recordLockout(result *PinResult) {
	if result.RetryAfter != nil && *result.RetryAfter > 0 {
		f.lockedUntil = f.now().Add(time.Duration(*result.RetryAfter) * time.Second)
	}
}

func (f *Flow) lockedResult(remaining time.Duration) *PinResult {
	seconds := int(remaining.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return &PinResult{
		Error:      "Too many attempts. Try again later.",
		RetryAfter: &seconds,
	}
}
