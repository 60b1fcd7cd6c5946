package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/usecase"
)

// ErrSchedulerStopped is returned by calls made after the scheduler stopped
var ErrSchedulerStopped = errors.New("reminder scheduler stopped")

const (
	dueQueueSize    = 256
	deliveryTimeout = 30 * time.Second
	snapshotTimeout = 10 * time.Second
	idleWake        = time.Hour
)

// ReminderListener receives reminders that are due for delivery
type ReminderListener interface {
	ReminderDue(ctx context.Context, r domain.Reminder) error
}

// ReminderScheduler owns the reminder state. Every operation runs on a
// single loop goroutine; deliveries and snapshot writes happen off-loop.
type ReminderScheduler struct {
	uc              *usecase.ReminderUsecase
	snapshots       repo.SnapshotRepo
	listener        ReminderListener
	cleanupInterval time.Duration
	logger          *zap.Logger
	now             func() time.Time

	requests  chan func(now time.Time)
	due       chan domain.Reminder
	snapshot  chan map[string]domain.SnapshotEntry
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReminderScheduler creates a scheduler. snapshots may be nil.
func NewReminderScheduler(
	uc *usecase.ReminderUsecase,
	snapshots repo.SnapshotRepo,
	cleanupInterval time.Duration,
	logger *zap.Logger,
) *ReminderScheduler {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	return &ReminderScheduler{
		uc:              uc,
		snapshots:       snapshots,
		cleanupInterval: cleanupInterval,
		logger:          logger.Named("reminders"),
		now:             time.Now,
		requests:        make(chan func(now time.Time)),
		due:             make(chan domain.Reminder, dueQueueSize),
		snapshot:        make(chan map[string]domain.SnapshotEntry, 1),
		done:            make(chan struct{}),
	}
}

// SetListener sets the delivery callback. Must be called before Start.
func (s *ReminderScheduler) SetListener(l ReminderListener) {
	s.listener = l
}

// Start discards the previous snapshot and starts the loops
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.discardSnapshot(ctx)

		s.ctx, s.cancel = context.WithCancel(ctx)
		s.wg.Add(3)
		go s.loop()
		go s.dispatchLoop()
		go s.snapshotLoop()

		s.logger.Info("scheduler_started", zap.Duration("cleanup_interval", s.cleanupInterval))
	})
}

// Stop stops the loops and waits for in-flight deliveries
func (s *ReminderScheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			s.wg.Wait()
		} else {
			close(s.done)
		}
		s.logger.Info("scheduler_stopped")
	})
}

// Create starts escalating a detection. created is false when a recent
// acknowledgment blocks the pair.
func (s *ReminderScheduler) Create(ctx context.Context, userID, keyword string, payload domain.Payload) (r domain.Reminder, created bool, err error) {
	err = s.do(ctx, func(now time.Time) {
		rec := s.uc.Create(now, userID, keyword, payload)
		if rec == nil {
			return
		}
		r, created = rec.Clone(), true
		s.publishSnapshot()
	})
	if err == nil && created {
		s.logger.Info("reminder_created",
			zap.String("reminder_id", r.ID),
			zap.String("user_id", userID),
			zap.String("keyword", keyword),
			zap.Time("next_fire_at", r.NextFireAt))
	}
	return r, created, err
}

// Acknowledge stops the pending reminders of userID
func (s *ReminderScheduler) Acknowledge(ctx context.Context, userID string) (res domain.AckResult, err error) {
	err = s.do(ctx, func(now time.Time) {
		res = s.uc.Acknowledge(now, userID)
		s.publishSnapshot()
	})
	if err == nil {
		s.logger.Info("reminders_acknowledged",
			zap.String("user_id", userID),
			zap.Bool("had_active", res.HasActive))
	}
	return res, err
}

// List returns the tracked reminders, all users when userID is empty
func (s *ReminderScheduler) List(ctx context.Context, userID string) (rs []domain.Reminder, err error) {
	err = s.do(ctx, func(time.Time) {
		rs = s.uc.List(userID)
	})
	return rs, err
}

// Get returns one reminder
func (s *ReminderScheduler) Get(ctx context.Context, id string) (r domain.Reminder, err error) {
	if derr := s.do(ctx, func(time.Time) {
		r, err = s.uc.Get(id)
	}); derr != nil {
		return r, derr
	}
	return r, err
}

// Snapshot returns the diagnostic view of every tracked reminder
func (s *ReminderScheduler) Snapshot(ctx context.Context) (entries map[string]domain.SnapshotEntry, err error) {
	err = s.do(ctx, func(time.Time) {
		entries = s.uc.Snapshot()
	})
	return entries, err
}

// do runs fn on the loop goroutine and waits for it
func (s *ReminderScheduler) do(ctx context.Context, fn func(now time.Time)) error {
	finished := make(chan struct{})
	op := func(now time.Time) {
		defer close(finished)
		fn(now)
	}

	select {
	case s.requests <- op:
	case <-s.done:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// once accepted the op always runs, so waiting on it is bounded
	<-finished
	return nil
}

func (s *ReminderScheduler) loop() {
	defer s.wg.Done()
	defer close(s.done)

	timer := time.NewTimer(idleWake)
	defer timer.Stop()
	sweep := time.NewTicker(s.cleanupInterval)
	defer sweep.Stop()

	for {
		s.resetTimer(timer)

		select {
		case <-s.ctx.Done():
			return
		case op := <-s.requests:
			op(s.now())
		case <-timer.C:
			s.fireDue()
		case <-sweep.C:
			if n := s.uc.Sweep(s.now()); n > 0 {
				s.logger.Info("reminders_swept", zap.Int("removed", n))
				s.publishSnapshot()
			}
		}
	}
}

func (s *ReminderScheduler) resetTimer(timer *time.Timer) {
	wait := idleWake
	if at, ok := s.uc.NextWake(); ok {
		wait = at.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
	}
	timer.Stop()
	timer.Reset(wait)
}

func (s *ReminderScheduler) fireDue() {
	due, changed := s.uc.FireDue(s.now())
	if !changed {
		return
	}
	for _, r := range due {
		select {
		case s.due <- r:
		case <-s.ctx.Done():
			return
		}
	}
	s.publishSnapshot()
}

func (s *ReminderScheduler) dispatchLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case r := <-s.due:
			s.deliver(r)
		}
	}
}

func (s *ReminderScheduler) deliver(r domain.Reminder) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("reminder_listener_panic",
				zap.String("reminder_id", r.ID),
				zap.Any("panic", p))
		}
	}()

	if s.listener == nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, deliveryTimeout)
	defer cancel()

	if err := s.listener.ReminderDue(ctx, r); err != nil {
		s.logger.Warn("reminder_delivery_failed",
			zap.String("reminder_id", r.ID),
			zap.String("user_id", r.UserID),
			zap.Int("fire_count", r.FireCount),
			zap.Error(err))
		return
	}
	s.logger.Debug("reminder_delivered",
		zap.String("reminder_id", r.ID),
		zap.Int("fire_count", r.FireCount))
}

// publishSnapshot hands the latest state to the writer, replacing any
// state it has not picked up yet
func (s *ReminderScheduler) publishSnapshot() {
	if s.snapshots == nil {
		return
	}
	entries := s.uc.Snapshot()
	select {
	case s.snapshot <- entries:
		return
	default:
	}
	select {
	case <-s.snapshot:
	default:
	}
	s.snapshot <- entries
}

func (s *ReminderScheduler) snapshotLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case entries := <-s.snapshot:
			ctx, cancel := context.WithTimeout(s.ctx, snapshotTimeout)
			if err := s.snapshots.Write(ctx, entries); err != nil {
				s.logger.Warn("snapshot_write_failed", zap.Error(err))
			}
			cancel()
		}
	}
}

func (s *ReminderScheduler) discardSnapshot(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	existed, valid, err := s.snapshots.Discard(ctx)
	switch {
	case err != nil:
		s.logger.Warn("snapshot_discard_failed", zap.Error(err))
	case existed && !valid:
		s.logger.Warn("snapshot_invalid_discarded")
	case existed:
		s.logger.Info("snapshot_discarded")
	}
}
