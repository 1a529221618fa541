package registry

import (
	"testing"
	"time"
)

func newRec(id string, status Status, createdAt time.Time) Record {
	return Record{
		SessionID:       id,
		MultiplexerName: "summd-" + id,
		DisplayName:     id,
		Status:          status,
		CreatedAt:       createdAt,
		LastActivity:    createdAt,
	}
}

func TestInsertRejectsDuplicate(t *testing.T) {
	reg := New()
	rec := newRec("a", StatusRunning, time.Now())
	if err := reg.Insert(rec); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := reg.Insert(rec); err == nil {
		t.Error("second Insert with same session_id should fail")
	}
}

func TestGetMissing(t *testing.T) {
	reg := New()
	if _, ok := reg.Get("nope"); ok {
		t.Error("Get on empty registry should report not found")
	}
}

func TestUpdateRequiresExisting(t *testing.T) {
	reg := New()
	if err := reg.Update(newRec("a", StatusIdle, time.Now())); err == nil {
		t.Error("Update on absent session_id should fail")
	}
}

func TestListFilterAndOrder(t *testing.T) {
	reg := New()
	now := time.Now()
	_ = reg.Insert(newRec("older", StatusRunning, now.Add(-time.Hour)))
	_ = reg.Insert(newRec("newer", StatusRunning, now))
	_ = reg.Insert(newRec("idle-one", StatusIdle, now))

	running := reg.List("running")
	if len(running) != 2 {
		t.Fatalf("List(running) returned %d records, want 2", len(running))
	}
	if running[0].SessionID != "newer" || running[1].SessionID != "older" {
		t.Errorf("List(running) not sorted created_at descending: %v, %v", running[0].SessionID, running[1].SessionID)
	}

	idle := reg.List("idle")
	if len(idle) != 1 || idle[0].SessionID != "idle-one" {
		t.Errorf("List(idle) = %v, want [idle-one]", idle)
	}

	all := reg.List("")
	if len(all) != 3 {
		t.Errorf("List(\"\") returned %d, want 3", len(all))
	}
}

func TestListUnknownFilterIsEmpty(t *testing.T) {
	reg := New()
	_ = reg.Insert(newRec("a", StatusRunning, time.Now()))

	got := reg.List("bogus")
	if len(got) != 0 {
		t.Errorf("List(bogus) = %v, want empty", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	reg := New()
	_ = reg.Insert(newRec("a", StatusRunning, time.Now()))
	reg.Delete("a")
	reg.Delete("a") // should not panic or error

	if _, ok := reg.Get("a"); ok {
		t.Error("deleted session still present")
	}
}

func TestCloneIsolatesPID(t *testing.T) {
	reg := New()
	pid := 1234
	rec := newRec("a", StatusRunning, time.Now())
	rec.PID = &pid
	_ = reg.Insert(rec)

	got, _ := reg.Get("a")
	*got.PID = 9999

	fresh, _ := reg.Get("a")
	if *fresh.PID != 1234 {
		t.Error("mutating a cloned record's PID leaked into the registry")
	}
}
