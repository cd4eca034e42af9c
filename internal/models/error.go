package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Auth flow errors
	ErrBotRejected    = errors.New("bot verification rejected")
	ErrServerConfig   = errors.New("server configuration error")
	ErrSessionExpired = errors.New("session expired")
	ErrUpstream       = errors.New("upstream request failed")
)

// CredentialError indicates a wrong static or time PIN. It carries the
// number of attempts left in the current rate-limit window so clients can
// show a hint.
type CredentialError struct {
	AttemptsLeft int
}

func (e *CredentialError) Error() string {
	return "invalid credential"
}

func (e *CredentialError) Unwrap() error {
	return ErrUnauthorized
}

// RateLimitError indicates the identity is locked out. RetryAfter is in
// whole seconds, always positive while the lock is active.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %d seconds", e.RetryAfter)
}
