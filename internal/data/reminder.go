package data

import (
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
)

// reminderStore keeps reminders in memory, indexed by user.
// Timers do not survive a restart, so neither do the records.
type reminderStore struct {
	records map[string]*domain.Reminder
	byUser  map[string]map[string]struct{}
}

// NewReminderStore creates an empty in-memory reminder store
func NewReminderStore() repo.ReminderRepo {
	return &reminderStore{
		records: make(map[string]*domain.Reminder),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (s *reminderStore) Save(r *domain.Reminder) {
	if prev, ok := s.records[r.ID]; ok && prev.UserID != r.UserID {
		s.unindex(prev)
	}
	s.records[r.ID] = r
	ids, ok := s.byUser[r.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[r.UserID] = ids
	}
	ids[r.ID] = struct{}{}
}

func (s *reminderStore) Get(id string) *domain.Reminder {
	return s.records[id]
}

func (s *reminderStore) ActiveFor(userID string) *domain.Reminder {
	for id := range s.byUser[userID] {
		if r := s.records[id]; r != nil && r.IsActive() {
			return r
		}
	}
	return nil
}

func (s *reminderStore) ListByUser(userID string) []*domain.Reminder {
	ids := s.byUser[userID]
	out := make([]*domain.Reminder, 0, len(ids))
	for id := range ids {
		out = append(out, s.records[id])
	}
	domain.SortByDetection(out)
	return out
}

func (s *reminderStore) List() []*domain.Reminder {
	out := make([]*domain.Reminder, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	domain.SortByDetection(out)
	return out
}

func (s *reminderStore) Delete(id string) {
	if r, ok := s.records[id]; ok {
		s.unindex(r)
		delete(s.records, id)
	}
}

func (s *reminderStore) unindex(r *domain.Reminder) {
	ids := s.byUser[r.UserID]
	delete(ids, r.ID)
	if len(ids) == 0 {
		delete(s.byUser, r.UserID)
	}
}
