package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestObserveHelpersDoNotPanic(t *testing.T) {
	ObserveReconcile(10 * time.Millisecond)
	SetActiveSessions("running", 3)
	SetActiveSessions("idle", 1)
	IncCleanupRemoved(2)
	IncCleanupRemoved(0)
	ObserveRequest("Start", "success")
}

func TestDisabledServerStartStopAreNoOps(t *testing.T) {
	s := New(false, "127.0.0.1:0")
	if err := s.Start(); err != nil {
		t.Fatalf("Start (disabled): %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop (disabled): %v", err)
	}
}

func TestEnabledServerServesMetrics(t *testing.T) {
	s := New(true, "127.0.0.1:19099")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())

	resp, err := http.Get("http://127.0.0.1:19099/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
