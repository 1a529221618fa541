package supervisor

import (
	"context"
	"time"

	"github.com/HexSleeves/summ-daemon/internal/metrics"
	"github.com/HexSleeves/summ-daemon/internal/registry"
)

// reconcileLoop recomputes every session's effective status on a fixed
// tick, keeping the registry's view in step with hook reports and
// multiplexer liveness between client requests.
func (s *Supervisor) reconcileLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopTasks:
			return
		case <-ticker.C:
			s.reconcileOnce(ctx)
		}
	}
}

// reconcileOnce walks every known session and, unless it was just told to
// skip (a recent Stop still mid-teardown), recomputes its effective
// status and persists the record when that status has changed or the
// session is still live (refreshing LastActivity).
func (s *Supervisor) reconcileOnce(ctx context.Context) {
	start := time.Now()

	counts := map[registry.Status]int{}
	snapshot := s.registry.Snapshot()

	for _, rec := range snapshot {
		counts[rec.Status]++

		if !rec.SkipReconcileUntil.IsZero() && time.Now().Before(rec.SkipReconcileUntil) {
			continue
		}

		live := registry.EffectiveStatus(ctx, s.cfg.FS, s.cfg.Mux, rec, s.statusPath(rec.SessionID), s.cfg.StaleThreshold)
		changed := live != rec.Status
		if !changed && live == registry.StatusStopped {
			continue
		}

		rec.Status = live
		if live != registry.StatusStopped {
			rec.LastActivity = time.Now().UTC()
		}
		if err := s.repo.Save(rec); err != nil {
			s.logWarn("persisting reconciled status failed", "session_id", rec.SessionID, "error", err)
			continue
		}
		if err := s.registry.Update(rec); err != nil {
			s.logWarn("updating registry after reconcile failed", "session_id", rec.SessionID, "error", err)
		}
	}

	for _, status := range []registry.Status{registry.StatusRunning, registry.StatusIdle, registry.StatusStopped} {
		metrics.SetActiveSessions(string(status), counts[status])
	}
	metrics.ObserveReconcile(time.Since(start))

	if l := s.log(); l != nil {
		l.Performance("reconcile", start)
	}
}
