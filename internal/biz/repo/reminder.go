package repo

import (
	"context"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
)

// ReminderRepo holds reminder records
// Not safe for concurrent use: it is owned by the scheduler loop
type ReminderRepo interface {
	// Save creates or replaces a record
	Save(r *domain.Reminder)

	// Get returns the record or nil
	Get(id string) *domain.Reminder

	// ActiveFor returns the user's active record or nil
	ActiveFor(userID string) *domain.Reminder

	// ListByUser returns the user's records ordered by detection time
	ListByUser(userID string) []*domain.Reminder

	// List returns every record ordered by detection time
	List() []*domain.Reminder

	// Delete removes a record
	Delete(id string)
}

// SnapshotRepo persists the diagnostic reminder snapshot
// The snapshot is write-only: it is never restored
type SnapshotRepo interface {
	// Write replaces the snapshot with entries keyed by reminder id
	Write(ctx context.Context, entries map[string]domain.SnapshotEntry) error

	// Discard removes a snapshot left by a previous run.
	// It reports whether one existed and whether it could be parsed.
	Discard(ctx context.Context) (existed bool, valid bool, err error)
}
