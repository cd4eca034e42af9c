package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/hello2himel/urochithi/internal/ratelimit"
)

// CleanupManager periodically evicts stale rate-limit records. A record
// with an active lock is never removed, no matter how old; eviction only
// reclaims memory from identities that went quiet.
type CleanupManager struct {
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(limiter *ratelimit.Limiter, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		limiter:  limiter,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.runSweep()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runSweep() {
	evicted := cm.limiter.Sweep()
	if evicted > 0 {
		cm.logger.Info("stale rate-limit records evicted", slog.Int("count", evicted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
