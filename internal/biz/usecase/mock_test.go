package usecase

import (
	"context"
	"errors"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
)

// MockReminderRepo implements repo.ReminderRepo for testing
type MockReminderRepo struct {
	records map[string]*domain.Reminder
}

func NewMockReminderRepo() *MockReminderRepo {
	return &MockReminderRepo{records: make(map[string]*domain.Reminder)}
}

func (m *MockReminderRepo) Save(r *domain.Reminder) { m.records[r.ID] = r }

func (m *MockReminderRepo) Get(id string) *domain.Reminder { return m.records[id] }

func (m *MockReminderRepo) ActiveFor(userID string) *domain.Reminder {
	for _, r := range m.records {
		if r.UserID == userID && r.IsActive() {
			return r
		}
	}
	return nil
}

func (m *MockReminderRepo) ListByUser(userID string) []*domain.Reminder {
	var out []*domain.Reminder
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	domain.SortByDetection(out)
	return out
}

func (m *MockReminderRepo) List() []*domain.Reminder {
	var out []*domain.Reminder
	for _, r := range m.records {
		out = append(out, r)
	}
	domain.SortByDetection(out)
	return out
}

func (m *MockReminderRepo) Delete(id string) { delete(m.records, id) }

// MockKeywordRegistry implements repo.KeywordRegistry for testing
type MockKeywordRegistry struct {
	global      []string
	personal    map[string][]string
	subscribers map[string][]string
	err         error
}

func (m *MockKeywordRegistry) GlobalKeywords(ctx context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.global, nil
}

func (m *MockKeywordRegistry) PersonalKeywords(ctx context.Context, userID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.personal[userID], nil
}

func (m *MockKeywordRegistry) Subscribers(ctx context.Context, group string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subscribers[group], nil
}

var errRegistryDown = errors.New("registry down")
