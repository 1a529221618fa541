package supervisor

import (
	"context"
	"fmt"

	"github.com/HexSleeves/summ-daemon/internal/registry"
)

// recover runs once at startup, before the socket is bound: it loads
// whatever session records survived from a prior run and reconciles each
// against the live multiplexer. A session the multiplexer still hosts
// gets its pid refreshed and its effective status recomputed; one the
// multiplexer has lost is downgraded to stopped. Multiplexer sessions
// that carry this daemon's prefix but have no matching meta.json are
// reported but never adopted — they were not created through this
// daemon's Start and the spec leaves their ownership undefined.
func (s *Supervisor) recover(ctx context.Context) error {
	recs, err := s.repo.LoadAll()
	if err != nil {
		return fmt.Errorf("loading persisted sessions: %w", err)
	}

	owned, err := s.cfg.Mux.ListOwned(ctx)
	if err != nil {
		s.logWarn("listing multiplexer sessions failed, assuming none hosted", "error", err)
		owned = nil
	}
	hosted := make(map[string]bool, len(owned))
	for _, name := range owned {
		hosted[name] = true
	}

	known := make(map[string]bool, len(recs))
	for _, rec := range recs {
		known[rec.SessionID] = true

		if hosted[rec.SessionID] {
			if pid, ok := s.cfg.Mux.PanePID(ctx, rec.SessionID); ok {
				rec.PID = &pid
			}
			live := registry.EffectiveStatus(ctx, s.cfg.FS, s.cfg.Mux, rec, s.statusPath(rec.SessionID), s.cfg.StaleThreshold)
			if live != rec.Status {
				rec.Status = live
			}
		} else if rec.Status == registry.StatusRunning || rec.Status == registry.StatusIdle {
			rec.Status = registry.StatusStopped
			rec.PID = nil
		}

		if err := s.registry.Insert(rec); err != nil {
			s.logWarn("duplicate session id on recovery, skipping", "session_id", rec.SessionID, "error", err)
			continue
		}
		if err := s.repo.Save(rec); err != nil {
			s.logWarn("re-persisting recovered session failed", "session_id", rec.SessionID, "error", err)
		}
	}

	for _, name := range owned {
		if !known[name] {
			s.logWarn("multiplexer session carries our prefix but has no meta.json, leaving it alone", "session", name)
		}
	}

	s.logInfo("startup recovery complete", "recovered", len(recs), "hosted", len(owned))
	return nil
}
