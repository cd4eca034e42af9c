package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hello2himel/urochithi/internal/timepin"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type RateLimitConfig struct {
	MaxAttempts       int
	Window            time.Duration
	BaseBlockDuration time.Duration
	ExponentialBase   int64
	SweepInterval     time.Duration
}

// Secrets are the request-scoped credentials. They are read fresh from the
// environment on every request (never cached) so a rotation takes effect
// immediately; a login in flight across a rotation is invalidated, which is
// intended.
type Secrets struct {
	DashboardPIN    string
	RecaptchaSecret string
	TimePinRule     string
	SessionSecret   string
	GScriptURL      string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	// Fail at startup if the session secret is absent or weak; it is still
	// re-read per request afterwards
	if err := validateSessionSecret(os.Getenv("SESSION_SECRET"), env); err != nil {
		return nil, err
	}

	if os.Getenv("DASHBOARD_PIN") == "" {
		return nil, fmt.Errorf("DASHBOARD_PIN is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:       getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", 5),
			Window:            getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			BaseBlockDuration: getEnvAsDuration("RATE_LIMIT_BLOCK_DURATION", 30*time.Minute),
			ExponentialBase:   int64(getEnvAsInt("RATE_LIMIT_EXPONENTIAL_BASE", 2)),
			SweepInterval:     getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	return cfg, nil
}

// LoadSecrets reads the auth secrets from the environment. Called per
// request by design; see Secrets.
func LoadSecrets() Secrets {
	return Secrets{
		DashboardPIN:    os.Getenv("DASHBOARD_PIN"),
		RecaptchaSecret: os.Getenv("RECAPTCHA_SECRET_KEY"),
		TimePinRule:     getEnv("TIME_PIN_ALGORITHM", timepin.DefaultRule),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		GScriptURL:      os.Getenv("GSCRIPT_URL"),
	}
}

// validateSessionSecret enforces minimum security standards for the session
// signing secret
func validateSessionSecret(secret, env string) error {
	if secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires a 256-bit secret
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
