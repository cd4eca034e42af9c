package ratelimit

import (
	"log/slog"
	"time"
)

// Config holds limiter behavior settings.
type Config struct {
	MaxAttempts       int           // Attempts allowed per window before locking
	Window            time.Duration // Idle time after which a record resets
	BaseBlockDuration time.Duration // First lockout duration
	ExponentialBase   int64         // Lockout growth factor per excess attempt
}

// DefaultConfig mirrors the production settings: 5 attempts per 15 minutes,
// 30 minute base lockout doubling with each further attempt.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       5,
		Window:            15 * time.Minute,
		BaseBlockDuration: 30 * time.Minute,
		ExponentialBase:   2,
	}
}

// Result is the outcome of a single Check call.
type Result struct {
	Allowed      bool
	RetryAfter   int // seconds until the lock expires; 0 when allowed
	AttemptsLeft int // attempts remaining in the window; 0 when not allowed
}

// Limiter tracks authentication attempts per client identity and locks out
// abusive clients with exponentially growing block durations. State lives in
// process memory only; lockouts do not survive a restart.
type Limiter struct {
	store  Store
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Limiter backed by the given store.
func New(store Store, config Config, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the limiter's time source. Used by tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Check records an attempt for identity and reports whether it may proceed.
// The whole read-modify-write runs atomically for the identity.
func (l *Limiter) Check(identity string) Result {
	now := l.now()
	var res Result

	l.store.Update(identity, func(rec Record, ok bool) (Record, bool) {
		// No previous attempts, or the record predates the window: start fresh
		if !ok || now.Sub(rec.LastAttempt) > l.config.Window {
			if ok && now.Before(rec.LockedUntil) {
				// An active lock outlives the window; it must not be shortened
				res = Result{RetryAfter: ceilSeconds(rec.LockedUntil.Sub(now))}
				return rec, true
			}
			res = Result{Allowed: true, AttemptsLeft: l.config.MaxAttempts - 1}
			return Record{AttemptCount: 1, LastAttempt: now}, true
		}

		if now.Before(rec.LockedUntil) {
			res = Result{RetryAfter: ceilSeconds(rec.LockedUntil.Sub(now))}
			return rec, true
		}

		rec.AttemptCount++
		rec.LastAttempt = now

		if rec.AttemptCount >= l.config.MaxAttempts {
			block := l.blockDuration(rec.AttemptCount)
			rec.LockedUntil = now.Add(block)
			res = Result{RetryAfter: ceilSeconds(block)}

			l.logger.Warn("client locked out",
				slog.String("identity", identity),
				slog.Int("attempts", rec.AttemptCount),
				slog.Duration("block_duration", block))
			return rec, true
		}

		res = Result{Allowed: true, AttemptsLeft: l.config.MaxAttempts - rec.AttemptCount}
		return rec, true
	})

	return res
}

// Reset clears the record for identity. Called only after a full phase-2
// success.
func (l *Limiter) Reset(identity string) {
	l.store.Delete(identity)
}

// Sweep evicts records idle for more than twice the attempt window. Records
// with an active lock are never evicted, no matter how old.
func (l *Limiter) Sweep() int {
	now := l.now()
	maxAge := 2 * l.config.Window

	return l.store.Evict(func(identity string, rec Record) bool {
		if now.Before(rec.LockedUntil) {
			return false
		}
		return now.Sub(rec.LastAttempt) > maxAge
	})
}

// blockDuration computes baseBlockDuration * exponentialBase^(count - maxAttempts).
func (l *Limiter) blockDuration(count int) time.Duration {
	excess := count - l.config.MaxAttempts
	// Beyond ~20 doublings the duration would overflow int64 nanoseconds
	if excess > 20 {
		excess = 20
	}

	multiplier := int64(1)
	for i := 0; i < excess; i++ {
		multiplier *= l.config.ExponentialBase
	}
	return l.config.BaseBlockDuration * time.Duration(multiplier)
}

// ceilSeconds converts a duration to whole seconds, rounding up
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
