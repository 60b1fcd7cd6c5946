package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ReminderStatus is the lifecycle state of a reminder
type ReminderStatus string

const (
	StatusActive       ReminderStatus = "active"
	StatusAcknowledged ReminderStatus = "acknowledged"
	StatusCancelled    ReminderStatus = "cancelled"
	StatusCompleted    ReminderStatus = "completed"
)

var (
	ErrInvalidTransition = errors.New("invalid reminder transition")
	ErrReminderNotFound  = errors.New("reminder not found")
)

// DefaultSchedule is the escalation schedule applied after the initial alert.
// Offsets are relative to the previous fire.
var DefaultSchedule = []time.Duration{
	1 * time.Minute,
	2 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
	90 * time.Minute,
}

// Payload is the detected message a reminder keeps re-delivering
type Payload struct {
	Message    string      `json:"message"`
	Sender     string      `json:"sender"`
	SenderID   string      `json:"sender_id,omitempty"`
	Group      string      `json:"group"`
	MessageID  string      `json:"message_id"`
	ChannelID  string      `json:"channel_id"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Reminder is one escalation record for a (user, keyword) detection
type Reminder struct {
	ID               string
	UserID           string
	Keyword          string
	Payload          Payload
	Status           ReminderStatus
	FirstDetectedAt  time.Time
	NextFireAt       time.Time
	FireCount        int
	IntervalSchedule []time.Duration
	UpdatedAt        time.Time
}

// NewReminder creates an active reminder whose first escalation is due
// schedule[0] after now
func NewReminder(id, userID, keyword string, payload Payload, schedule []time.Duration, now time.Time) *Reminder {
	if len(schedule) == 0 {
		schedule = DefaultSchedule
	}
	s := make([]time.Duration, len(schedule))
	copy(s, schedule)

	return &Reminder{
		ID:               id,
		UserID:           userID,
		Keyword:          keyword,
		Payload:          payload,
		Status:           StatusActive,
		FirstDetectedAt:  now,
		NextFireAt:       now.Add(s[0]),
		IntervalSchedule: s,
		UpdatedAt:        now,
	}
}

// IsActive reports whether the reminder is still escalating
func (r *Reminder) IsActive() bool {
	return r.Status == StatusActive
}

// FireBound is the fire count at which the reminder is forced to completed
func (r *Reminder) FireBound() int {
	return len(r.IntervalSchedule) + 1
}

// Cancel moves an active reminder to cancelled (overridden by a newer detection)
func (r *Reminder) Cancel(now time.Time) error {
	if r.Status != StatusActive {
		return r.transitionError(StatusCancelled)
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now
	return nil
}

// Complete moves an active reminder to completed
func (r *Reminder) Complete(now time.Time) error {
	if r.Status != StatusActive {
		return r.transitionError(StatusCompleted)
	}
	r.Status = StatusCompleted
	r.UpdatedAt = now
	return nil
}

// Acknowledge marks the reminder as dismissed by the user.
// Cancelled and completed records may be swept into acknowledged too.
func (r *Reminder) Acknowledge(now time.Time) error {
	if r.Status == StatusAcknowledged {
		return r.transitionError(StatusAcknowledged)
	}
	r.Status = StatusAcknowledged
	r.UpdatedAt = now
	return nil
}

// Fire records a timer fire. It returns true when the payload should be
// delivered; false means the reminder reached its bound and is now completed.
func (r *Reminder) Fire(now time.Time) (bool, error) {
	if r.Status != StatusActive {
		return false, r.transitionError(StatusActive)
	}

	r.FireCount++
	if r.FireCount >= r.FireBound() {
		r.Status = StatusCompleted
		r.UpdatedAt = now
		return false, nil
	}

	idx := r.FireCount
	if idx >= len(r.IntervalSchedule) {
		idx = len(r.IntervalSchedule) - 1
	}
	r.NextFireAt = now.Add(r.IntervalSchedule[idx])
	r.UpdatedAt = now
	return true, nil
}

// Clone returns a copy safe to hand to other goroutines
func (r *Reminder) Clone() Reminder {
	c := *r
	c.IntervalSchedule = append([]time.Duration(nil), r.IntervalSchedule...)
	if r.Payload.Attachment != nil {
		a := *r.Payload.Attachment
		c.Payload.Attachment = &a
	}
	return c
}

func (r *Reminder) transitionError(to ReminderStatus) error {
	return fmt.Errorf("%w: %s -> %s (reminder %s)", ErrInvalidTransition, r.Status, to, r.ID)
}

// SortByDetection orders reminders oldest detection first
func SortByDetection(rs []*Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].FirstDetectedAt.Equal(rs[j].FirstDetectedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].FirstDetectedAt.Before(rs[j].FirstDetectedAt)
	})
}

// SnapshotEntry is the diagnostic view of a reminder written to disk
type SnapshotEntry struct {
	ReminderID      string         `json:"reminderId"`
	UserID          string         `json:"userId"`
	Keyword         string         `json:"keyword"`
	Status          ReminderStatus `json:"status"`
	FirstDetectedAt time.Time      `json:"firstDetectedAt"`
	NextReminderAt  time.Time      `json:"nextReminderAt"`
	ReminderCount   int            `json:"reminderCount"`
}

// ToSnapshot converts the reminder to its diagnostic view
func (r *Reminder) ToSnapshot() SnapshotEntry {
	return SnapshotEntry{
		ReminderID:      r.ID,
		UserID:          r.UserID,
		Keyword:         r.Keyword,
		Status:          r.Status,
		FirstDetectedAt: r.FirstDetectedAt,
		NextReminderAt:  r.NextFireAt,
		ReminderCount:   r.FireCount,
	}
}

// AckResult is returned by an acknowledgment
type AckResult struct {
	HasActive bool   `json:"has_active"`
	Summary   string `json:"summary"`
}
