package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string // e.g. "static_pin", "time_pin", "bot_score"
	Identity      string
	Success       bool
	FailureReason string
	BotScore      float64
}

// AuditLogger provides audit logging for authentication attempts
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Identity != "" {
		attrs = append(attrs, slog.String("identity", event.Identity))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	if event.BotScore > 0 {
		attrs = append(attrs, slog.Float64("bot_score", event.BotScore))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	al.logger.LogAttrs(context.Background(), level, "auth_attempt", attrs...)
}
