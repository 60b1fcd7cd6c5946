package usecase

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
)

func newTestReminderUsecase(config ReminderConfig) (*ReminderUsecase, *MockReminderRepo) {
	store := NewMockReminderRepo()
	uc := NewReminderUsecase(store, config)
	n := 0
	uc.newID = func() string {
		n++
		return fmt.Sprintf("r%d", n)
	}
	return uc, store
}

func TestCreate_ReplacesActiveRecord(t *testing.T) {
	uc, store := newTestReminderUsecase(DefaultReminderConfig())
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	first := uc.Create(now, "u1", "urgent", domain.Payload{Message: "one"})
	second := uc.Create(now.Add(time.Second), "u1", "urgent", domain.Payload{Message: "two"})
	if first == nil || second == nil {
		t.Fatal("Expected both creates to produce records")
	}

	if store.Get(first.ID).Status != domain.StatusCancelled {
		t.Errorf("Expected first record cancelled, got %s", store.Get(first.ID).Status)
	}
	if uc.Pending(first.ID) {
		t.Error("Expected the cancelled record's timer to be voided")
	}

	active := 0
	for _, r := range store.ListByUser("u1") {
		if r.IsActive() {
			active++
		}
	}
	if active != 1 {
		t.Errorf("Expected exactly 1 active record, got %d", active)
	}

	// The voided timer must not fire
	due, _ := uc.FireDue(now.Add(2 * time.Minute))
	if len(due) != 1 || due[0].ID != second.ID {
		t.Errorf("Expected only the second record to fire, got %+v", due)
	}
}

func TestAcknowledge_BlocksWithinWindow(t *testing.T) {
	uc, store := newTestReminderUsecase(DefaultReminderConfig())
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	uc.Create(now, "u1", "urgent", domain.Payload{})
	result := uc.Acknowledge(now.Add(5*time.Second), "u1")
	if !result.HasActive {
		t.Fatalf("Expected HasActive, got %+v", result)
	}
	if len(store.records) != 0 {
		t.Errorf("Expected acknowledged records purged, got %d", len(store.records))
	}

	if r := uc.Create(now.Add(10*time.Second), "u1", "URGENT", domain.Payload{}); r != nil {
		t.Error("Expected create inside the race window to be a no-op")
	}
	if r := uc.Create(now.Add(10*time.Second), "u1", "help", domain.Payload{}); r == nil {
		t.Error("Expected a different keyword to be unaffected by the guard")
	}

	r := uc.Create(now.Add(16*time.Second), "u1", "urgent", domain.Payload{})
	if r == nil || !r.IsActive() {
		t.Fatal("Expected a new active record after the window elapsed")
	}
}

func TestAcknowledge_Idempotent(t *testing.T) {
	uc, _ := newTestReminderUsecase(DefaultReminderConfig())
	now := time.Now()

	result := uc.Acknowledge(now, "nobody")
	if result.HasActive {
		t.Error("Expected HasActive false with nothing pending")
	}
	if result.Summary != "No active reminders." {
		t.Errorf("Unexpected summary: %q", result.Summary)
	}

	uc.Create(now, "u1", "urgent", domain.Payload{})
	uc.Acknowledge(now.Add(time.Second), "u1")
	again := uc.Acknowledge(now.Add(2*time.Second), "u1")
	if again.HasActive {
		t.Error("Expected second acknowledge to find nothing")
	}
}

func TestAcknowledge_Summary(t *testing.T) {
	uc, store := newTestReminderUsecase(ReminderConfig{
		Schedule:  []time.Duration{time.Minute},
		AckWindow: 10 * time.Second,
	})
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	// completes after one escalation
	uc.Create(now, "u1", "fire", domain.Payload{})
	uc.FireDue(now.Add(time.Minute))
	uc.FireDue(now.Add(2 * time.Minute))

	uc.Create(now.Add(3*time.Minute), "u1", "help", domain.Payload{})
	uc.Create(now.Add(4*time.Minute), "u1", "urgent", domain.Payload{})

	result := uc.Acknowledge(now.Add(5*time.Minute), "u1")
	if !result.HasActive {
		t.Fatal("Expected HasActive")
	}
	for _, want := range []string{`Stopped: "urgent"`, `Overridden: "help"`, `Expired: "fire"`} {
		if !strings.Contains(result.Summary, want) {
			t.Errorf("Expected summary to contain %q, got %q", want, result.Summary)
		}
	}
	if len(store.records) != 0 {
		t.Errorf("Expected all acknowledged records purged, got %d", len(store.records))
	}
}

func TestFireDue_CompletesAtBound(t *testing.T) {
	schedule := []time.Duration{time.Minute, 2 * time.Minute}
	uc, store := newTestReminderUsecase(ReminderConfig{Schedule: schedule, AckWindow: time.Second})
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	r := uc.Create(now, "u1", "urgent", domain.Payload{Message: "server down"})

	delivered := 0
	lastChanged := false
	for i := 0; i < 10; i++ {
		next, ok := uc.NextWake()
		if !ok {
			break
		}
		due, changed := uc.FireDue(next)
		delivered += len(due)
		lastChanged = changed
	}

	if delivered != len(schedule) {
		t.Errorf("Expected %d deliveries, got %d", len(schedule), delivered)
	}
	// the bounding fire delivers nothing but still updates the record
	if !lastChanged {
		t.Error("Expected the completing fire to report a change")
	}
	got := store.Get(r.ID)
	if got.Status != domain.StatusCompleted {
		t.Errorf("Expected completed, got %s", got.Status)
	}
	if got.FireCount != got.FireBound() {
		t.Errorf("Expected FireCount %d, got %d", got.FireBound(), got.FireCount)
	}
	if _, ok := uc.NextWake(); ok {
		t.Error("Expected no timer after completion")
	}
}

func TestFireDue_Escalates(t *testing.T) {
	uc, _ := newTestReminderUsecase(DefaultReminderConfig())
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	uc.Create(now, "u1", "urgent", domain.Payload{})

	if due, changed := uc.FireDue(now.Add(30 * time.Second)); len(due) != 0 || changed {
		t.Errorf("Expected nothing due before the first interval, got %d (changed=%v)", len(due), changed)
	}

	due, _ := uc.FireDue(now.Add(time.Minute))
	if len(due) != 1 || due[0].FireCount != 1 {
		t.Fatalf("Expected first escalation, got %+v", due)
	}
	next, _ := uc.NextWake()
	if want := now.Add(time.Minute + 2*time.Minute); !next.Equal(want) {
		t.Errorf("Expected next fire at %v, got %v", want, next)
	}
}

func TestSweep(t *testing.T) {
	uc, store := newTestReminderUsecase(ReminderConfig{
		Schedule:        []time.Duration{time.Minute},
		AckWindow:       10 * time.Second,
		RecordRetention: time.Hour,
	})
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	old := uc.Create(now, "u1", "urgent", domain.Payload{})
	uc.Create(now.Add(time.Second), "u1", "help", domain.Payload{})
	uc.Create(now, "u2", "fire", domain.Payload{})

	if n := uc.Sweep(now.Add(30 * time.Minute)); n != 0 {
		t.Errorf("Expected nothing purged within retention, got %d", n)
	}
	if n := uc.Sweep(now.Add(2 * time.Hour)); n != 1 {
		t.Errorf("Expected the cancelled record purged, got %d", n)
	}
	if store.Get(old.ID) != nil {
		t.Error("Expected cancelled record removed")
	}
	if uc.ActiveCount() != 2 {
		t.Errorf("Expected 2 active records kept, got %d", uc.ActiveCount())
	}
}

func TestSnapshot(t *testing.T) {
	uc, _ := newTestReminderUsecase(DefaultReminderConfig())
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	r := uc.Create(now, "u1", "urgent", domain.Payload{})
	entries := uc.Snapshot()

	entry, ok := entries[r.ID]
	if !ok {
		t.Fatalf("Expected snapshot entry for %s", r.ID)
	}
	if entry.UserID != "u1" || entry.Keyword != "urgent" || entry.Status != domain.StatusActive {
		t.Errorf("Unexpected entry: %+v", entry)
	}
	if !entry.NextReminderAt.Equal(now.Add(time.Minute)) {
		t.Errorf("Expected nextReminderAt %v, got %v", now.Add(time.Minute), entry.NextReminderAt)
	}
}
