package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/hello2himel/urochithi/internal/auth"
	"github.com/hello2himel/urochithi/internal/config"
	"github.com/hello2himel/urochithi/internal/handlers"
	"github.com/hello2himel/urochithi/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	messageHandler *handlers.MessageHandler,
) {
	submitRateLimit := middleware.DefaultSubmitRateLimit()

	// Public routes
	router.With(middleware.RateLimitByIP(submitRateLimit)).Post("/api/submit", messageHandler.Submit)

	// Two-step login; the adaptive limiter inside the auth service does the
	// per-identity throttling here
	router.Post("/api/auth/verify-static-pin", authHandler.VerifyStaticPin)
	router.Post("/api/auth/verify-time-pin", authHandler.VerifyTimePin)

	// Dashboard routes - session token required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(func() (string, error) {
			return config.LoadSecrets().SessionSecret, nil
		}))

		r.Get("/api/messages", messageHandler.List)
	})
}
