// Package handler dispatches one decoded protocol.Request per connection
// against the session registry, multiplexer adapter, workspace builder,
// and hook deployer.
package handler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/HexSleeves/summ-daemon/internal/fsys"
	"github.com/HexSleeves/summ-daemon/internal/hooks"
	"github.com/HexSleeves/summ-daemon/internal/logger"
	"github.com/HexSleeves/summ-daemon/internal/multiplexer"
	"github.com/HexSleeves/summ-daemon/internal/protocol"
	"github.com/HexSleeves/summ-daemon/internal/registry"
	"github.com/HexSleeves/summ-daemon/internal/workspace"
)

// Handler holds everything one request needs to execute: the shared
// registry, the multiplexer adapter, the filesystem, and the base
// directory layout.
type Handler struct {
	FS             fsys.FS
	Mux            multiplexer.Multiplexer
	Registry       *registry.Registry
	Repo           *registry.Repository
	BaseDir        string
	StaleThreshold time.Duration
	Logger         *logger.Logger
}

func (h *Handler) sessionDir(id string) string  { return filepath.Join(h.BaseDir, "sessions", id) }
func (h *Handler) workspaceDir(id string) string { return filepath.Join(h.sessionDir(id), "workspace") }
func (h *Handler) runtimeDir(id string) string   { return filepath.Join(h.sessionDir(id), "runtime") }
func (h *Handler) statusPath(id string) string   { return filepath.Join(h.runtimeDir(id), "status.json") }
func (h *Handler) binDir() string                { return filepath.Join(h.BaseDir, "bin") }
func (h *Handler) logPath(id string) string      { return filepath.Join(h.BaseDir, "logs", id+".log") }

// Dispatch executes req and returns the response to write back to the
// client. It never returns a Go error directly — every failure path is
// already a *protocol.Error wrapped into an Error response, matching the
// "every request produces exactly one response" contract.
func (h *Handler) Dispatch(ctx context.Context, req *protocol.Request) protocol.Response {
	var data any
	var err error

	switch req.Type {
	case protocol.RequestStart:
		data, err = h.handleStart(ctx, req)
	case protocol.RequestStop:
		data, err = h.handleStop(ctx, req)
	case protocol.RequestList:
		data, err = h.handleList(req)
	case protocol.RequestStatus:
		data, err = h.handleStatus(ctx, req)
	case protocol.RequestInject:
		data, err = h.handleInject(ctx, req)
	case protocol.RequestDaemonStatus:
		data, err = h.handleDaemonStatus()
	default:
		err = protocol.ErrInvalidCommand()
	}

	if err != nil {
		return protocol.FromError(err)
	}
	return protocol.Success(data)
}

func (h *Handler) handleStart(ctx context.Context, req *protocol.Request) (any, error) {
	if strings.TrimSpace(req.Command) == "" {
		return nil, protocol.ErrInvalidCommand()
	}

	id := registry.NewSessionID()
	displayName := req.Name
	if displayName == "" {
		displayName = id
	}

	workdir := h.sessionDir(id)
	wsDir := h.workspaceDir(id)
	rtDir := h.runtimeDir(id)

	if err := h.FS.MkdirAll(wsDir, 0o755); err != nil {
		return nil, protocol.ErrCreateFailed(err.Error())
	}
	if err := h.FS.MkdirAll(rtDir, 0o755); err != nil {
		return nil, protocol.ErrCreateFailed(err.Error())
	}

	if err := workspace.Build(h.FS, wsDir, req.Init); err != nil {
		h.abortCreate(id)
		return nil, mapWorkspaceError(err)
	}

	if err := hooks.DeploySession(h.FS, wsDir, h.binDir(), id, rtDir, req.Command); err != nil {
		h.abortCreate(id)
		return nil, protocol.ErrCreateFailed(err.Error())
	}

	env := map[string]string{
		"SUMMD_SESSION_ID":  id,
		"SUMMD_RUNTIME_DIR": rtDir,
	}
	if err := h.Mux.Create(ctx, id, wsDir, req.Command, env); err != nil {
		h.abortCreate(id)
		return nil, protocol.ErrCreateFailed(err.Error())
	}

	if err := h.Mux.EnableLogging(ctx, id, h.logPath(id)); err != nil && h.Logger != nil {
		h.Logger.Warn("enable_logging failed", "session_id", id, "error", err)
	}

	pid, _ := h.Mux.PanePID(ctx, id)
	var pidPtr *int
	if pid != 0 {
		pidPtr = &pid
	}

	now := time.Now().UTC()
	rec := registry.Record{
		SessionID:       id,
		MultiplexerName: "summd-" + id,
		DisplayName:     displayName,
		Command:         req.Command,
		Workdir:         workdir,
		InitSource:      req.Init,
		Status:          registry.StatusRunning,
		PID:             pidPtr,
		CreatedAt:       now,
		LastActivity:    now,
	}

	if err := h.Repo.Save(rec); err != nil {
		_ = h.Mux.Kill(ctx, id)
		h.abortCreate(id)
		return nil, protocol.ErrCreateFailed(err.Error())
	}
	if err := h.Registry.Insert(rec); err != nil {
		return nil, protocol.ErrCreateFailed(err.Error())
	}

	return rec, nil
}

// abortCreate removes whatever partial state Start laid down when a later
// step fails, keeping I4 (workspace/ exists iff the registry entry does)
// from being violated by a half-created session.
func (h *Handler) abortCreate(id string) {
	_ = h.FS.RemoveAll(h.sessionDir(id))
}

func mapWorkspaceError(err error) *protocol.Error {
	switch {
	case errors.Is(err, workspace.ErrInitNotFound):
		return protocol.ErrInitNotFound(err.Error())
	default:
		return protocol.ErrExtractFailed(err.Error())
	}
}

func (h *Handler) handleStop(ctx context.Context, req *protocol.Request) (any, error) {
	rec, ok := h.Registry.Get(req.SessionID)
	if !ok {
		return nil, protocol.ErrSessionNotFound(req.SessionID)
	}

	if err := h.Mux.Kill(ctx, rec.SessionID); err != nil && h.Logger != nil {
		h.Logger.Warn("kill failed during Stop, continuing", "session_id", rec.SessionID, "error", err)
	}

	rec.Status = registry.StatusStopped
	rec.LastActivity = time.Now().UTC()
	rec.SkipReconcileUntil = time.Now().Add(10 * time.Second)

	if err := h.Repo.Save(rec); err != nil && h.Logger != nil {
		h.Logger.Warn("persisting stopped status failed", "session_id", rec.SessionID, "error", err)
	}
	_ = h.Registry.Update(rec)

	return map[string]any{"session_id": rec.SessionID, "status": string(registry.StatusStopped)}, nil
}

func (h *Handler) handleList(req *protocol.Request) (any, error) {
	recs := h.Registry.List(req.StatusFilter)
	infos := make([]protocol.SessionInfo, 0, len(recs))
	for _, r := range recs {
		infos = append(infos, toSessionInfo(r))
	}
	return map[string]any{"sessions": infos}, nil
}

func toSessionInfo(r registry.Record) protocol.SessionInfo {
	return protocol.SessionInfo{
		SessionID:   r.SessionID,
		DisplayName: r.DisplayName,
		Command:     r.Command,
		Workdir:     r.Workdir,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) handleStatus(ctx context.Context, req *protocol.Request) (any, error) {
	rec, ok := h.Registry.Get(req.SessionID)
	if !ok {
		return nil, protocol.ErrSessionNotFound(req.SessionID)
	}

	live := registry.EffectiveStatus(ctx, h.FS, h.Mux, rec, h.statusPath(rec.SessionID), h.StaleThreshold)
	if live != rec.Status {
		rec.Status = live
		_ = h.Repo.Save(rec)
		_ = h.Registry.Update(rec)
	}
	return rec, nil
}

func (h *Handler) handleInject(ctx context.Context, req *protocol.Request) (any, error) {
	rec, ok := h.Registry.Get(req.SessionID)
	if !ok {
		return nil, protocol.ErrSessionNotFound(req.SessionID)
	}
	if !h.Mux.Exists(ctx, rec.SessionID) {
		return nil, protocol.ErrSessionStopped(rec.SessionID)
	}
	if err := h.Mux.SendInput(ctx, rec.SessionID, req.Message, true); err != nil {
		return nil, protocol.ErrSendFailed(err.Error())
	}
	return map[string]any{
		"session_id":     rec.SessionID,
		"injected":       true,
		"message_length": len(req.Message),
	}, nil
}

// DaemonVersion is set by the build (cmd/summ-daemon) for reporting in
// DaemonStatus responses.
var DaemonVersion = "dev"

func (h *Handler) handleDaemonStatus() (any, error) {
	count := 0
	for _, r := range h.Registry.Snapshot() {
		if r.Status == registry.StatusRunning || r.Status == registry.StatusIdle {
			count++
		}
	}
	return map[string]any{
		"running":       true,
		"session_count": count,
		"version":       DaemonVersion,
	}, nil
}
