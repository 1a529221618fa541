package multiplexer

import "testing"

func TestNewUnsupportedBackend(t *testing.T) {
	if _, err := New("screen", "summd-", "3.0", nil); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

func TestNewTmuxBackend(t *testing.T) {
	m, err := New("tmux", "summd-", "3.0", nil)
	if err != nil {
		t.Fatalf("New(tmux): %v", err)
	}
	if _, ok := m.(*Tmux); !ok {
		t.Errorf("New(tmux) returned %T, want *Tmux", m)
	}
}

func TestNewTmuxInvalidMinVersion(t *testing.T) {
	if _, err := New("tmux", "summd-", "not-a-version", nil); err == nil {
		t.Error("expected error for unparseable minimum version")
	}
}
