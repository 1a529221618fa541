package supervisor

import (
	"context"
	"time"

	"github.com/HexSleeves/summ-daemon/internal/metrics"
	"github.com/HexSleeves/summ-daemon/internal/registry"
)

// cleanupLoop periodically removes stopped sessions that have aged past
// the retention window, freeing their on-disk session directories.
func (s *Supervisor) cleanupLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopTasks:
			return
		case <-ticker.C:
			s.cleanupOnce()
		}
	}
}

// cleanupOnce deletes every stopped session whose LastActivity is older
// than the retention window. A deletion failure is logged and the sweep
// continues with the rest; a session that fails to delete this tick is
// retried on the next.
func (s *Supervisor) cleanupOnce() {
	cutoff := time.Now().Add(-s.cfg.Retention)
	removed := 0

	for _, rec := range s.registry.Snapshot() {
		if rec.Status != registry.StatusStopped || rec.LastActivity.After(cutoff) {
			continue
		}

		if err := s.repo.Delete(rec.SessionID); err != nil {
			s.logWarn("deleting session directory during cleanup failed", "session_id", rec.SessionID, "error", err)
			continue
		}
		s.registry.Delete(rec.SessionID)
		removed++
	}

	metrics.IncCleanupRemoved(removed)
	if removed > 0 {
		s.logInfo("cleanup removed stale sessions", "count", removed)
	}

	if l := s.log(); l != nil {
		if err := l.RotateIfNeeded(); err != nil {
			s.logWarn("log rotation failed", "error", err)
		}
	}
}
