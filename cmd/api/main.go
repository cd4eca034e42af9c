package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hello2himel/urochithi/internal/background"
	"github.com/hello2himel/urochithi/internal/config"
	"github.com/hello2himel/urochithi/internal/handlers"
	middlewareCustom "github.com/hello2himel/urochithi/internal/middleware"
	"github.com/hello2himel/urochithi/internal/ratelimit"
	"github.com/hello2himel/urochithi/internal/recaptcha"
	"github.com/hello2himel/urochithi/internal/routes"
	"github.com/hello2himel/urochithi/internal/services"
	pkglogger "github.com/hello2himel/urochithi/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Adaptive per-identity limiter guarding the two-step login
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		MaxAttempts:       cfg.RateLimit.MaxAttempts,
		Window:            cfg.RateLimit.Window,
		BaseBlockDuration: cfg.RateLimit.BaseBlockDuration,
		ExponentialBase:   cfg.RateLimit.ExponentialBase,
	}, logger)

	// Periodic eviction of stale limiter records
	cleanupManager := background.NewCleanupManager(limiter, logger, cfg.RateLimit.SweepInterval)

	// Security services
	auditLogger := pkglogger.NewAuditLogger(logger)
	verifier := recaptcha.NewVerifier(logger)

	authService := services.NewAuthService(limiter, verifier, config.LoadSecrets, logger, auditLogger)
	messageService := services.NewMessageService(config.LoadSecrets, logger)

	authHandler := handlers.NewAuthHandler(authService)
	messageHandler := handlers.NewMessageHandler(messageService)

	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, messageHandler)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupManager.Start(ctx)

	go func() {
		logger.Info("listening", slog.String("addr", server.Addr), slog.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	cleanupManager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("stopped")
}
