package handler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HexSleeves/summ-daemon/internal/fsys"
	"github.com/HexSleeves/summ-daemon/internal/multiplexer"
	"github.com/HexSleeves/summ-daemon/internal/protocol"
	"github.com/HexSleeves/summ-daemon/internal/registry"
)

type fakeMux struct {
	existing  map[string]bool
	createErr error
	sendErr   error
}

func newFakeMux() *fakeMux { return &fakeMux{existing: make(map[string]bool)} }

func (f *fakeMux) CheckAvailable(ctx context.Context) error { return nil }
func (f *fakeMux) Create(ctx context.Context, name, workdir, command string, env map[string]string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.existing[name] = true
	return nil
}
func (f *fakeMux) Exists(ctx context.Context, name string) bool { return f.existing[name] }
func (f *fakeMux) PanePID(ctx context.Context, name string) (int, bool) { return 4242, true }
func (f *fakeMux) SendInput(ctx context.Context, name, text string, submit bool) error {
	return f.sendErr
}
func (f *fakeMux) Kill(ctx context.Context, name string) error {
	delete(f.existing, name)
	return nil
}
func (f *fakeMux) ListOwned(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeMux) EnableLogging(ctx context.Context, name, logPath string) error { return nil }
func (f *fakeMux) Capture(ctx context.Context, name string, lines int) (string, error) {
	return "", nil
}

var _ multiplexer.Multiplexer = (*fakeMux)(nil)

func newTestHandler(t *testing.T) (*Handler, *fakeMux) {
	t.Helper()
	fs := fsys.NewFake()
	mux := newFakeMux()
	reg := registry.New()
	repo := registry.NewRepository(fs, "/base/sessions")

	return &Handler{
		FS:             fs,
		Mux:            mux,
		Registry:       reg,
		Repo:           repo,
		BaseDir:        "/base",
		StaleThreshold: registry.StaleThreshold,
	}, mux
}

func TestDispatchStartCreatesSession(t *testing.T) {
	h, mux := newTestHandler(t)
	initDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(initDir, "agent.md"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := h.Dispatch(context.Background(), &protocol.Request{
		Type:    protocol.RequestStart,
		Command: "claude",
		Init:    initDir,
	})
	if resp.Type != "Success" {
		t.Fatalf("Dispatch(Start) = %+v", resp)
	}

	rec, ok := resp.Data.(registry.Record)
	if !ok {
		t.Fatalf("Success data is %T, want registry.Record", resp.Data)
	}
	if rec.Status != registry.StatusRunning {
		t.Errorf("new session status = %q, want running", rec.Status)
	}
	if !mux.existing[rec.SessionID] {
		t.Error("multiplexer never recorded the new session")
	}
	if _, ok := h.Registry.Get(rec.SessionID); !ok {
		t.Error("session not inserted into registry")
	}
}

func TestDispatchStartEmptyCommandIsInvalid(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := h.Dispatch(context.Background(), &protocol.Request{
		Type:    protocol.RequestStart,
		Command: "   ",
		Init:    t.TempDir(),
	})
	if resp.Type != "Error" || resp.Code != protocol.CodeInvalidCommand {
		t.Errorf("Dispatch(Start, blank command) = %+v", resp)
	}
}

func TestDispatchStartMissingInitSource(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := h.Dispatch(context.Background(), &protocol.Request{
		Type:    protocol.RequestStart,
		Command: "claude",
		Init:    "/no/such/path",
	})
	if resp.Type != "Error" || resp.Code != protocol.CodeInitNotFound {
		t.Errorf("Dispatch(Start, missing init) = %+v", resp)
	}
}

func TestDispatchStopUnknownSession(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := h.Dispatch(context.Background(), &protocol.Request{
		Type:      protocol.RequestStop,
		SessionID: "nope",
	})
	if resp.Type != "Error" || resp.Code != protocol.CodeSessionNotFound {
		t.Errorf("Dispatch(Stop, unknown) = %+v", resp)
	}
}

func TestDispatchStopMarksStopped(t *testing.T) {
	h, mux := newTestHandler(t)
	mux.existing["abc"] = true
	rec := registry.Record{SessionID: "abc", Status: registry.StatusRunning, CreatedAt: time.Now()}
	_ = h.Registry.Insert(rec)
	_ = h.Repo.Save(rec)

	resp := h.Dispatch(context.Background(), &protocol.Request{
		Type:      protocol.RequestStop,
		SessionID: "abc",
	})
	if resp.Type != "Success" {
		t.Fatalf("Dispatch(Stop) = %+v", resp)
	}

	got, _ := h.Registry.Get("abc")
	if got.Status != registry.StatusStopped {
		t.Errorf("status after Stop = %q, want stopped", got.Status)
	}
	if mux.existing["abc"] {
		t.Error("Stop should have killed the multiplexer session")
	}
}

func TestDispatchStopIsIdempotent(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := registry.Record{SessionID: "abc", Status: registry.StatusStopped, CreatedAt: time.Now()}
	_ = h.Registry.Insert(rec)

	resp := h.Dispatch(context.Background(), &protocol.Request{
		Type:      protocol.RequestStop,
		SessionID: "abc",
	})
	if resp.Type != "Success" {
		t.Fatalf("Dispatch(Stop) on already-stopped session = %+v", resp)
	}
}

func TestDispatchInjectRequiresLiveSession(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := registry.Record{SessionID: "abc", Status: registry.StatusIdle, CreatedAt: time.Now()}
	_ = h.Registry.Insert(rec)
	// mux has no "abc" session registered -> not hosted

	resp := h.Dispatch(context.Background(), &protocol.Request{
		Type:      protocol.RequestInject,
		SessionID: "abc",
		Message:   "hello",
	})
	if resp.Type != "Error" || resp.Code != protocol.CodeSessionStopped {
		t.Errorf("Dispatch(Inject) on unhosted session = %+v", resp)
	}
}

func TestDispatchInjectSuccess(t *testing.T) {
	h, mux := newTestHandler(t)
	mux.existing["abc"] = true
	rec := registry.Record{SessionID: "abc", Status: registry.StatusIdle, CreatedAt: time.Now()}
	_ = h.Registry.Insert(rec)

	resp := h.Dispatch(context.Background(), &protocol.Request{
		Type:      protocol.RequestInject,
		SessionID: "abc",
		Message:   "hello",
	})
	if resp.Type != "Success" {
		t.Fatalf("Dispatch(Inject) = %+v", resp)
	}
	data := resp.Data.(map[string]any)
	if data["message_length"] != 5 {
		t.Errorf("message_length = %v, want 5", data["message_length"])
	}
}

func TestDispatchListSortsByCreatedAtDescending(t *testing.T) {
	h, _ := newTestHandler(t)
	now := time.Now()
	_ = h.Registry.Insert(registry.Record{SessionID: "old", Status: registry.StatusRunning, CreatedAt: now.Add(-time.Hour)})
	_ = h.Registry.Insert(registry.Record{SessionID: "new", Status: registry.StatusRunning, CreatedAt: now})

	resp := h.Dispatch(context.Background(), &protocol.Request{Type: protocol.RequestList})
	data := resp.Data.(map[string]any)
	sessions := data["sessions"].([]protocol.SessionInfo)
	if len(sessions) != 2 || sessions[0].SessionID != "new" || sessions[1].SessionID != "old" {
		t.Errorf("List order = %+v, want [new, old]", sessions)
	}
}

func TestDispatchDaemonStatusCountsLiveSessions(t *testing.T) {
	h, _ := newTestHandler(t)
	_ = h.Registry.Insert(registry.Record{SessionID: "a", Status: registry.StatusRunning, CreatedAt: time.Now()})
	_ = h.Registry.Insert(registry.Record{SessionID: "b", Status: registry.StatusIdle, CreatedAt: time.Now()})
	_ = h.Registry.Insert(registry.Record{SessionID: "c", Status: registry.StatusStopped, CreatedAt: time.Now()})

	resp := h.Dispatch(context.Background(), &protocol.Request{Type: protocol.RequestDaemonStatus})
	data := resp.Data.(map[string]any)
	if data["session_count"] != 2 {
		t.Errorf("session_count = %v, want 2", data["session_count"])
	}
}
