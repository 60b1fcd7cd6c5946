package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
)

// ReminderConfig configures the escalation state machine
type ReminderConfig struct {
	Schedule        []time.Duration // Escalation offsets after the initial alert
	AckWindow       time.Duration   // How long an acknowledged pair stays blocked
	RecordRetention time.Duration   // How long finished records are kept
}

// DefaultReminderConfig returns the default configuration
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Schedule:        domain.DefaultSchedule,
		AckWindow:       10 * time.Second,
		RecordRetention: 24 * time.Hour,
	}
}

type pairKey struct {
	userID  string
	keyword string
}

func newPairKey(userID, keyword string) pairKey {
	return pairKey{userID: userID, keyword: strings.ToLower(strings.TrimSpace(keyword))}
}

// ReminderUsecase is the reminder state machine.
// It is not safe for concurrent use; service.ReminderScheduler owns it
// from a single goroutine. Every method takes the current time explicitly.
type ReminderUsecase struct {
	store  repo.ReminderRepo
	config ReminderConfig
	timers *timerQueue
	newID  func() string

	lastAck map[string]time.Time  // user -> last acknowledgment
	guards  map[pairKey]time.Time // acknowledged pair -> block expiry
}

// NewReminderUsecase creates a new reminder usecase
func NewReminderUsecase(store repo.ReminderRepo, config ReminderConfig) *ReminderUsecase {
	if len(config.Schedule) == 0 {
		config.Schedule = domain.DefaultSchedule
	}
	return &ReminderUsecase{
		store:   store,
		config:  config,
		timers:  newTimerQueue(),
		newID:   uuid.NewString,
		lastAck: make(map[string]time.Time),
		guards:  make(map[pairKey]time.Time),
	}
}

// Create starts escalating a detection for userID. Any other active record
// of the user is cancelled. It returns nil when the pair is blocked by a
// recent acknowledgment.
func (uc *ReminderUsecase) Create(now time.Time, userID, keyword string, payload domain.Payload) *domain.Reminder {
	if uc.Blocked(now, userID, keyword) {
		return nil
	}

	if prev := uc.store.ActiveFor(userID); prev != nil {
		if err := prev.Cancel(now); err == nil {
			uc.timers.cancel(prev.ID)
			uc.store.Save(prev)
		}
	}

	r := domain.NewReminder(uc.newID(), userID, keyword, payload, uc.config.Schedule, now)
	uc.store.Save(r)
	uc.timers.schedule(r.ID, r.NextFireAt)
	return r
}

// Blocked reports whether a new detection of the pair must be ignored
func (uc *ReminderUsecase) Blocked(now time.Time, userID, keyword string) bool {
	key := newPairKey(userID, keyword)
	if until, ok := uc.guards[key]; ok {
		if now.Before(until) {
			return true
		}
		delete(uc.guards, key)
	}

	for _, r := range uc.store.ListByUser(userID) {
		if r.Status == domain.StatusAcknowledged && newPairKey(r.UserID, r.Keyword) == key {
			return true
		}
	}
	return false
}

// FireDue fires every timer due at or before now and returns copies of the
// reminders to deliver. Records that are no longer active are skipped.
// changed is true when any record was updated, including a record that
// reached its bound and completed without a delivery.
func (uc *ReminderUsecase) FireDue(now time.Time) (due []domain.Reminder, changed bool) {
	for {
		e, ok := uc.timers.popDue(now)
		if !ok {
			return due, changed
		}

		r := uc.store.Get(e.id)
		if r == nil || !r.IsActive() {
			continue
		}
		deliver, err := r.Fire(now)
		if err != nil {
			continue
		}
		if deliver {
			uc.timers.schedule(r.ID, r.NextFireAt)
			due = append(due, r.Clone())
		}
		uc.store.Save(r)
		changed = true
	}
}

// NextWake returns when the next timer is due
func (uc *ReminderUsecase) NextWake() (time.Time, bool) {
	e, ok := uc.timers.peek()
	return e.at, ok
}

// Acknowledge stops every pending reminder of userID: the active record plus
// records detected since the previous acknowledgment. Acknowledged records
// are purged so the keyword can trigger again once the race window passes.
// Calling it with nothing pending is not an error.
func (uc *ReminderUsecase) Acknowledge(now time.Time, userID string) domain.AckResult {
	// Finished records detected before the previous acknowledgment were
	// already reported then; they are left for Sweep to purge.
	since := uc.lastAck[userID]

	var active *domain.Reminder
	var overridden, expired []*domain.Reminder
	for _, r := range uc.store.ListByUser(userID) {
		switch r.Status {
		case domain.StatusActive:
			active = r
		case domain.StatusCancelled:
			if r.FirstDetectedAt.After(since) {
				overridden = append(overridden, r)
			}
		case domain.StatusCompleted:
			if r.FirstDetectedAt.After(since) {
				expired = append(expired, r)
			}
		}
	}

	if active == nil && len(overridden) == 0 && len(expired) == 0 {
		return domain.AckResult{HasActive: false, Summary: "No active reminders."}
	}

	acked := make([]*domain.Reminder, 0, 1+len(overridden)+len(expired))
	if active != nil {
		acked = append(acked, active)
	}
	acked = append(acked, overridden...)
	acked = append(acked, expired...)

	for _, r := range acked {
		if err := r.Acknowledge(now); err != nil {
			continue
		}
		uc.timers.cancel(r.ID)
		uc.guards[newPairKey(r.UserID, r.Keyword)] = now.Add(uc.config.AckWindow)
	}
	uc.lastAck[userID] = now

	summary := ackSummary(active, overridden, expired)
	for _, r := range acked {
		uc.store.Delete(r.ID)
	}

	return domain.AckResult{HasActive: active != nil, Summary: summary}
}

func ackSummary(active *domain.Reminder, overridden, expired []*domain.Reminder) string {
	var b strings.Builder
	b.WriteString("Reminders acknowledged.")
	if active != nil {
		fmt.Fprintf(&b, "\nStopped: %q (%s)", active.Keyword, plural(active.FireCount, "reminder"))
	}
	if len(overridden) > 0 {
		fmt.Fprintf(&b, "\nOverridden: %s", keywordList(overridden))
	}
	if len(expired) > 0 {
		fmt.Fprintf(&b, "\nExpired: %s", keywordList(expired))
	}
	return b.String()
}

func keywordList(rs []*domain.Reminder) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("%q", r.Keyword)
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s sent", word)
	}
	return fmt.Sprintf("%d %ss sent", n, word)
}

// Sweep drops expired race guards and finished records older than the
// retention period. It returns the number of records purged.
func (uc *ReminderUsecase) Sweep(now time.Time) int {
	for key, until := range uc.guards {
		if !now.Before(until) {
			delete(uc.guards, key)
		}
	}

	cutoff := now.Add(-uc.config.RecordRetention)
	purged := 0
	for _, r := range uc.store.List() {
		switch {
		case r.Status == domain.StatusAcknowledged:
		case !r.IsActive() && r.UpdatedAt.Before(cutoff):
		default:
			continue
		}
		uc.timers.cancel(r.ID)
		uc.store.Delete(r.ID)
		purged++
	}

	for userID, at := range uc.lastAck {
		if at.Before(cutoff) {
			delete(uc.lastAck, userID)
		}
	}
	return purged
}

// Get returns a copy of a record
func (uc *ReminderUsecase) Get(id string) (domain.Reminder, error) {
	r := uc.store.Get(id)
	if r == nil {
		return domain.Reminder{}, fmt.Errorf("%w: %s", domain.ErrReminderNotFound, id)
	}
	return r.Clone(), nil
}

// List returns copies of the records, optionally filtered by user
func (uc *ReminderUsecase) List(userID string) []domain.Reminder {
	var rs []*domain.Reminder
	if userID == "" {
		rs = uc.store.List()
	} else {
		rs = uc.store.ListByUser(userID)
	}
	out := make([]domain.Reminder, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Clone())
	}
	return out
}

// Snapshot returns the diagnostic view of every record keyed by id
func (uc *ReminderUsecase) Snapshot() map[string]domain.SnapshotEntry {
	rs := uc.store.List()
	entries := make(map[string]domain.SnapshotEntry, len(rs))
	for _, r := range rs {
		entries[r.ID] = r.ToSnapshot()
	}
	return entries
}

// Pending reports whether a timer is armed for the record
func (uc *ReminderUsecase) Pending(id string) bool {
	return uc.timers.pending(id)
}

// ActiveCount returns the number of active records
func (uc *ReminderUsecase) ActiveCount() int {
	n := 0
	for _, r := range uc.store.List() {
		if r.IsActive() {
			n++
		}
	}
	return n
}
