package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/HexSleeves/summ-daemon/internal/fsys"
	"github.com/HexSleeves/summ-daemon/internal/multiplexer"
)

// StaleThreshold is the default age past which a hook-reported idle state
// is no longer trusted and treated as running. Configurable at the
// supervisor level; this is the spec's named default.
const StaleThreshold = 120 * time.Second

// HookState is the state a hosted agent's reporter writes to
// runtime/status.json.
type HookState string

const (
	HookIdle    HookState = "idle"
	HookBusy    HookState = "busy"
	HookStopped HookState = "stopped"
)

// HookStatus is the parsed contents of runtime/status.json.
type HookStatus struct {
	State     HookState `json:"state"`
	Message   string    `json:"message,omitempty"`
	Event     string    `json:"event,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EffectiveStatus computes a session's live status by fusing multiplexer
// liveness with the hook-reported status file, per the four-step
// algorithm:
//
//  1. No multiplexer session of this name → stopped.
//  2. status.json missing or unreadable → running (hosted, not yet reporting).
//  3. status.json stale (older than staleAfter) → running (treat stale idle as busy).
//  4. Otherwise map state: idle → idle, busy → running, stopped → stopped.
func EffectiveStatus(ctx context.Context, fs fsys.FS, mux multiplexer.Multiplexer, r Record, statusPath string, staleAfter time.Duration) Status {
	// mux operations take the bare session id; the adapter applies its own
	// prefix internally, so MultiplexerName (prefix+id, the on-disk/wire
	// field) is never passed back into the adapter.
	if !mux.Exists(ctx, r.SessionID) {
		return StatusStopped
	}

	data, err := fs.ReadFile(statusPath)
	if err != nil {
		return StatusRunning
	}

	var hook HookStatus
	if err := json.Unmarshal(data, &hook); err != nil {
		return StatusRunning
	}

	if time.Since(hook.Timestamp) > staleAfter {
		return StatusRunning
	}

	switch hook.State {
	case HookIdle:
		return StatusIdle
	case HookStopped:
		return StatusStopped
	default:
		return StatusRunning
	}
}
