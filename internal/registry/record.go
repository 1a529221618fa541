// Package registry holds session records in memory, mirrors them to
// meta.json, and fuses multiplexer liveness with hook-reported status into
// one effective view.
package registry

import "time"

// Status is one of the three externally visible session states.
type Status string

const (
	StatusRunning Status = "running"
	StatusIdle    Status = "idle"
	StatusStopped Status = "stopped"
)

// Record is one session's full state, the in-memory counterpart of
// meta.json. PID is persisted (nullable) but display-only.
// SkipReconcileUntil is not persisted; it is write-through bookkeeping set
// by the handler's Stop.
type Record struct {
	SessionID       string     `json:"session_id"`
	MultiplexerName string     `json:"multiplexer_name"`
	DisplayName     string     `json:"name"`
	Command         string     `json:"cli"`
	Workdir         string     `json:"workdir"`
	InitSource      string     `json:"init_source"`
	Status          Status     `json:"status"`
	PID             *int       `json:"pid"`
	CreatedAt       time.Time  `json:"created_at"`
	LastActivity    time.Time  `json:"last_activity"`

	// SkipReconcileUntil, when non-zero and in the future, tells
	// reconciliation to leave this record's status alone: a just-issued
	// Stop already set status=stopped, and the multiplexer session may
	// still be mid-teardown when the next reconciliation tick runs.
	SkipReconcileUntil time.Time `json:"-"`
}

// Clone returns a deep-enough copy for safe handoff across the registry's
// lock boundary (PID is the only pointer field).
func (r Record) Clone() Record {
	if r.PID != nil {
		pid := *r.PID
		r.PID = &pid
	}
	return r
}
