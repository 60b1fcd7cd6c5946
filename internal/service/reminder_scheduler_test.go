package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/usecase"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/data"
)

func newTestScheduler(schedule []time.Duration, snapshots repo.SnapshotRepo, listener ReminderListener) *ReminderScheduler {
	uc := usecase.NewReminderUsecase(data.NewReminderStore(), usecase.ReminderConfig{
		Schedule:        schedule,
		AckWindow:       time.Second,
		RecordRetention: time.Hour,
	})
	s := NewReminderScheduler(uc, snapshots, time.Hour, zap.NewNop())
	s.SetListener(listener)
	return s
}

func TestReminderScheduler_EscalatesThenCompletes(t *testing.T) {
	listener := &recordingListener{}
	s := newTestScheduler([]time.Duration{20 * time.Millisecond, 20 * time.Millisecond}, nil, listener)
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	r, created, err := s.Create(ctx, "alice", "urgent", domain.Payload{Message: "This is URGENT!!"})
	if err != nil || !created {
		t.Fatalf("Create failed: created=%v err=%v", created, err)
	}

	ok := waitFor(2*time.Second, func() bool {
		got, err := s.Get(ctx, r.ID)
		return err == nil && got.Status == domain.StatusCompleted
	})
	if !ok {
		t.Fatal("Expected reminder to complete")
	}

	if !waitFor(time.Second, func() bool { return listener.count() == 2 }) {
		t.Fatalf("Expected 2 deliveries, got %d", listener.count())
	}
	delivered := listener.all()
	for i, d := range delivered {
		if d.FireCount != i+1 {
			t.Errorf("Expected delivery %d to carry fire count %d, got %d", i, i+1, d.FireCount)
		}
		if d.Payload.Message != "This is URGENT!!" {
			t.Errorf("Expected payload to be carried, got %q", d.Payload.Message)
		}
	}

	// no delivery after completion
	time.Sleep(60 * time.Millisecond)
	if listener.count() != 2 {
		t.Errorf("Expected no delivery after completion, got %d", listener.count())
	}
}

func TestReminderScheduler_AcknowledgeStopsEscalation(t *testing.T) {
	listener := &recordingListener{}
	s := newTestScheduler([]time.Duration{50 * time.Millisecond}, nil, listener)
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	if _, _, err := s.Create(ctx, "alice", "urgent", domain.Payload{}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res, err := s.Acknowledge(ctx, "alice")
	if err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if !res.HasActive {
		t.Error("Expected an active reminder to be acknowledged")
	}
	if !strings.Contains(res.Summary, `Stopped: "urgent"`) {
		t.Errorf("Expected summary to name the keyword, got %q", res.Summary)
	}

	time.Sleep(120 * time.Millisecond)
	if listener.count() != 0 {
		t.Errorf("Expected no deliveries after acknowledgment, got %d", listener.count())
	}

	// within the race window the same pair is ignored
	_, created, err := s.Create(ctx, "alice", "URGENT", domain.Payload{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created {
		t.Error("Expected create to be blocked by the recent acknowledgment")
	}

	res, err = s.Acknowledge(ctx, "alice")
	if err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if res.HasActive || res.Summary != "No active reminders." {
		t.Errorf("Expected idempotent acknowledgment, got %+v", res)
	}
}

func TestReminderScheduler_CreateReplacesActive(t *testing.T) {
	s := newTestScheduler([]time.Duration{time.Hour}, nil, &recordingListener{})
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	first, _, _ := s.Create(ctx, "alice", "urgent", domain.Payload{})
	second, _, _ := s.Create(ctx, "alice", "help", domain.Payload{})

	got, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Errorf("Expected first reminder cancelled, got %s", got.Status)
	}

	rs, err := s.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	active := 0
	for _, r := range rs {
		if r.Status == domain.StatusActive {
			active++
			if r.ID != second.ID {
				t.Errorf("Expected %s to be active, got %s", second.ID, r.ID)
			}
		}
	}
	if active != 1 {
		t.Errorf("Expected exactly one active reminder, got %d", active)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, domain.ErrReminderNotFound) {
		t.Errorf("Expected ErrReminderNotFound, got %v", err)
	}
}

func TestReminderScheduler_Snapshot(t *testing.T) {
	snaps := &mockSnapshotRepo{}
	s := newTestScheduler([]time.Duration{time.Hour}, snaps, &recordingListener{})
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	if !snaps.wasDiscarded() {
		t.Error("Expected previous snapshot to be discarded on start")
	}

	r, _, _ := s.Create(ctx, "alice", "urgent", domain.Payload{})

	ok := waitFor(time.Second, func() bool {
		entry, found := snaps.last()[r.ID]
		return found && entry.Keyword == "urgent" && entry.Status == domain.StatusActive
	})
	if !ok {
		t.Fatalf("Expected snapshot to contain %s, got %v", r.ID, snaps.last())
	}

	if _, err := s.Acknowledge(ctx, "alice"); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	ok = waitFor(time.Second, func() bool {
		last := snaps.last()
		_, found := last[r.ID]
		return last != nil && !found
	})
	if !ok {
		t.Errorf("Expected acknowledged reminder to leave the snapshot, got %v", snaps.last())
	}
}

func TestReminderScheduler_SnapshotShowsCompletion(t *testing.T) {
	snaps := &mockSnapshotRepo{}
	listener := &recordingListener{}
	s := newTestScheduler([]time.Duration{20 * time.Millisecond}, snaps, listener)
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	r, _, _ := s.Create(ctx, "alice", "urgent", domain.Payload{})

	ok := waitFor(2*time.Second, func() bool {
		got, err := s.Get(ctx, r.ID)
		return err == nil && got.Status == domain.StatusCompleted
	})
	if !ok {
		t.Fatal("Expected reminder to complete")
	}

	// the completing fire delivers nothing but must still reach the snapshot
	ok = waitFor(time.Second, func() bool {
		entry, found := snaps.last()[r.ID]
		return found && entry.Status == domain.StatusCompleted
	})
	if !ok {
		t.Errorf("Expected snapshot to show %s completed, got %+v", r.ID, snaps.last()[r.ID])
	}
	if listener.count() != 1 {
		t.Errorf("Expected 1 delivery, got %d", listener.count())
	}
}

func TestReminderScheduler_ListenerPanic(t *testing.T) {
	listener := &recordingListener{panicOn: 1}
	s := newTestScheduler([]time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, nil, listener)
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	if _, _, err := s.Create(ctx, "alice", "urgent", domain.Payload{}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !waitFor(time.Second, func() bool { return listener.count() >= 2 }) {
		t.Fatalf("Expected delivery to continue after a panic, got %d", listener.count())
	}
}

func TestReminderScheduler_ConcurrentCallers(t *testing.T) {
	s := newTestScheduler([]time.Duration{time.Hour}, nil, &recordingListener{})
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := "alice"
			if i%2 == 1 {
				user = "bob"
			}
			if _, _, err := s.Create(ctx, user, "urgent", domain.Payload{}); err != nil {
				t.Errorf("Create failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for _, user := range []string{"alice", "bob"} {
		rs, _ := s.List(ctx, user)
		active := 0
		for _, r := range rs {
			if r.Status == domain.StatusActive {
				active++
			}
		}
		if active != 1 {
			t.Errorf("Expected one active reminder for %s, got %d", user, active)
		}
	}
}

func TestReminderScheduler_StoppedCalls(t *testing.T) {
	s := newTestScheduler([]time.Duration{time.Hour}, nil, &recordingListener{})
	s.Start(context.Background())
	s.Stop()

	if _, _, err := s.Create(context.Background(), "alice", "urgent", domain.Payload{}); !errors.Is(err, ErrSchedulerStopped) {
		t.Errorf("Expected ErrSchedulerStopped, got %v", err)
	}
}

func TestReminderScheduler_ContextCancelledBeforeStart(t *testing.T) {
	s := newTestScheduler([]time.Duration{time.Hour}, nil, &recordingListener{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.List(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
