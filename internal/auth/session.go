package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hello2himel/urochithi/internal/models"
)

// SessionLifetime is the absolute dashboard session lifetime. The messages
// endpoint mirrors the same bound when re-validating tokens.
const SessionLifetime = 30 * time.Minute

// SessionClaims is the capability carried by the dashboard token: the
// authenticated flag plus the issuance timestamp in the registered claims.
type SessionClaims struct {
	Authenticated bool `json:"authenticated"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates the signed dashboard session token.
type SessionManager struct {
	secret   string
	lifetime time.Duration
}

// NewSessionManager creates a SessionManager signing with secret.
func NewSessionManager(secret string) *SessionManager {
	return &SessionManager{
		secret:   secret,
		lifetime: SessionLifetime,
	}
}

// Issue creates a session token valid for SessionLifetime from now.
func (sm *SessionManager) Issue(now time.Time) (string, error) {
	if sm.secret == "" {
		return "", fmt.Errorf("session secret not configured: %w", models.ErrServerConfig)
	}

	claims := &SessionClaims{
		Authenticated: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(sm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and re-derives staleness from the
// issued-at claim rather than trusting the expiry verbatim: a token whose
// issuance is more than SessionLifetime in the past is expired no matter
// what its exp says.
func (sm *SessionManager) Validate(tokenString string, now time.Time) (*SessionClaims, error) {
	if sm.secret == "" {
		return nil, fmt.Errorf("session secret not configured: %w", models.ErrServerConfig)
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(sm.secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrSessionExpired
		}
		return nil, fmt.Errorf("invalid session token: %w", models.ErrUnauthorized)
	}
	if !token.Valid || !claims.Authenticated {
		return nil, fmt.Errorf("invalid session token: %w", models.ErrUnauthorized)
	}

	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("session token missing issued-at: %w", models.ErrUnauthorized)
	}
	if now.Sub(claims.IssuedAt.Time) > sm.lifetime {
		return nil, models.ErrSessionExpired
	}

	return claims, nil
}
