package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hello2himel/urochithi/internal/models"
	pkghttp "github.com/hello2himel/urochithi/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// SessionContextKey is the key for storing session claims in context
const SessionContextKey contextKey = "session"

// SecretSource yields the current session signing secret. It is called on
// every request so a rotated secret takes effect without a restart.
type SecretSource func() (string, error)

// Middleware gates dashboard endpoints on a valid bearer session token.
func Middleware(secrets SecretSource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "Invalid authentication")
				return
			}

			secret, err := secrets()
			if err != nil || secret == "" {
				pkghttp.WriteInternalError(w, "Server configuration error")
				return
			}

			claims, err := NewSessionManager(secret).Validate(parts[1], time.Now())
			if err != nil {
				switch {
				case errors.Is(err, models.ErrSessionExpired):
					pkghttp.WriteUnauthorized(w, "Session expired")
				case errors.Is(err, models.ErrServerConfig):
					pkghttp.WriteInternalError(w, "Server configuration error")
				default:
					pkghttp.WriteUnauthorized(w, "Invalid authentication")
				}
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
