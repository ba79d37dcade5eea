package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/tbeaumont/folio/internal/auth"
)

// AttemptPruner removes login-attempt rows whose retention window has passed
type AttemptPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ActivityPruner removes activity rows older than a cutoff
type ActivityPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionPruner evicts idle sessions from the in-memory store
type SessionPruner interface {
	PruneIdle(now time.Time, idle, rememberIdle time.Duration) int
}

// CleanupConfig holds retention policy for the periodic cleanup task
type CleanupConfig struct {
	Interval           time.Duration
	ActivityRetention  time.Duration
	SessionTimeout     time.Duration
	RememberMeDuration time.Duration
}

// CleanupManager periodically prunes expired login attempts, idle sessions,
// and aged-out activity rows
type CleanupManager struct {
	attempts AttemptPruner
	activity ActivityPruner
	sessions SessionPruner
	clock    auth.Clock
	config   CleanupConfig
	logger   *slog.Logger
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attempts AttemptPruner,
	activity ActivityPruner,
	sessions SessionPruner,
	clock auth.Clock,
	config CleanupConfig,
	logger *slog.Logger,
) *CleanupManager {
	if clock == nil {
		clock = auth.SystemClock()
	}
	return &CleanupManager{
		attempts: attempts,
		activity: activity,
		sessions: sessions,
		clock:    clock,
		config:   config,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.config.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup executes one cleanup pass. Each step is independent; a failure
// in one does not stop the others.
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.clock.Now()

	attemptsDeleted, err := cm.attempts.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to delete expired login attempts", slog.Any("error", err))
	} else if attemptsDeleted > 0 {
		cm.logger.Info("expired login attempts deleted", slog.Int64("rows_deleted", attemptsDeleted))
	}

	activityDeleted, err := cm.activity.DeleteOlderThan(cleanupCtx, now.Add(-cm.config.ActivityRetention))
	if err != nil {
		cm.logger.Error("failed to prune activity log", slog.Any("error", err))
	} else if activityDeleted > 0 {
		cm.logger.Info("aged activity rows deleted", slog.Int64("rows_deleted", activityDeleted))
	}

	if pruned := cm.sessions.PruneIdle(now, cm.config.SessionTimeout, cm.config.RememberMeDuration); pruned > 0 {
		cm.logger.Info("idle sessions pruned", slog.Int("sessions", pruned))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
