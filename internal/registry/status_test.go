package registry

import (
	"context"
	"testing"
	"time"

	"github.com/HexSleeves/summ-daemon/internal/fsys"
	"github.com/HexSleeves/summ-daemon/internal/multiplexer"
)

// fakeMux is a minimal Multiplexer stub for status-fusion tests; only
// Exists is exercised by EffectiveStatus.
type fakeMux struct {
	existing map[string]bool
}

func (f *fakeMux) CheckAvailable(ctx context.Context) error { return nil }
func (f *fakeMux) Create(ctx context.Context, name, workdir, command string, env map[string]string) error {
	return nil
}
func (f *fakeMux) Exists(ctx context.Context, name string) bool { return f.existing[name] }
func (f *fakeMux) PanePID(ctx context.Context, name string) (int, bool) { return 0, false }
func (f *fakeMux) SendInput(ctx context.Context, name, text string, submit bool) error { return nil }
func (f *fakeMux) Kill(ctx context.Context, name string) error { return nil }
func (f *fakeMux) ListOwned(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeMux) EnableLogging(ctx context.Context, name, logPath string) error { return nil }
func (f *fakeMux) Capture(ctx context.Context, name string, lines int) (string, error) {
	return "", nil
}

var _ multiplexer.Multiplexer = (*fakeMux)(nil)

func TestEffectiveStatusNoMultiplexerSession(t *testing.T) {
	fs := fsys.NewFake()
	mux := &fakeMux{existing: map[string]bool{}}
	rec := newRec("abc", StatusRunning, time.Now())

	got := EffectiveStatus(context.Background(), fs, mux, rec, "/base/sessions/abc/runtime/status.json", StaleThreshold)
	if got != StatusStopped {
		t.Errorf("EffectiveStatus = %q, want stopped", got)
	}
}

func TestEffectiveStatusMissingStatusFile(t *testing.T) {
	fs := fsys.NewFake()
	mux := &fakeMux{existing: map[string]bool{"abc": true}}
	rec := newRec("abc", StatusIdle, time.Now())

	got := EffectiveStatus(context.Background(), fs, mux, rec, "/base/sessions/abc/runtime/status.json", StaleThreshold)
	if got != StatusRunning {
		t.Errorf("EffectiveStatus = %q, want running (hosted but silent)", got)
	}
}

func TestEffectiveStatusStaleReportTreatedAsRunning(t *testing.T) {
	fs := fsys.NewFake()
	mux := &fakeMux{existing: map[string]bool{"abc": true}}
	rec := newRec("abc", StatusIdle, time.Now())

	stalePath := "/base/sessions/abc/runtime/status.json"
	old := time.Now().Add(-10 * time.Minute).UTC().Format(time.RFC3339)
	fs.Files[stalePath] = []byte(`{"state":"idle","timestamp":"` + old + `"}`)

	got := EffectiveStatus(context.Background(), fs, mux, rec, stalePath, StaleThreshold)
	if got != StatusRunning {
		t.Errorf("EffectiveStatus = %q, want running for a stale idle report", got)
	}
}

func TestEffectiveStatusFreshIdleReport(t *testing.T) {
	fs := fsys.NewFake()
	mux := &fakeMux{existing: map[string]bool{"abc": true}}
	rec := newRec("abc", StatusRunning, time.Now())

	path := "/base/sessions/abc/runtime/status.json"
	fresh := time.Now().UTC().Format(time.RFC3339)
	fs.Files[path] = []byte(`{"state":"idle","timestamp":"` + fresh + `"}`)

	got := EffectiveStatus(context.Background(), fs, mux, rec, path, StaleThreshold)
	if got != StatusIdle {
		t.Errorf("EffectiveStatus = %q, want idle", got)
	}
}

func TestEffectiveStatusBusyMapsToRunning(t *testing.T) {
	fs := fsys.NewFake()
	mux := &fakeMux{existing: map[string]bool{"abc": true}}
	rec := newRec("abc", StatusIdle, time.Now())

	path := "/base/sessions/abc/runtime/status.json"
	fresh := time.Now().UTC().Format(time.RFC3339)
	fs.Files[path] = []byte(`{"state":"busy","timestamp":"` + fresh + `"}`)

	got := EffectiveStatus(context.Background(), fs, mux, rec, path, StaleThreshold)
	if got != StatusRunning {
		t.Errorf("EffectiveStatus = %q, want running", got)
	}
}

func TestEffectiveStatusStoppedReport(t *testing.T) {
	fs := fsys.NewFake()
	mux := &fakeMux{existing: map[string]bool{"abc": true}}
	rec := newRec("abc", StatusRunning, time.Now())

	path := "/base/sessions/abc/runtime/status.json"
	fresh := time.Now().UTC().Format(time.RFC3339)
	fs.Files[path] = []byte(`{"state":"stopped","timestamp":"` + fresh + `"}`)

	got := EffectiveStatus(context.Background(), fs, mux, rec, path, StaleThreshold)
	if got != StatusStopped {
		t.Errorf("EffectiveStatus = %q, want stopped", got)
	}
}
