package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
)

// mockRegistry implements repo.KeywordRegistry for testing
type mockRegistry struct {
	global      []string
	personal    map[string][]string
	subscribers map[string][]string
}

func (m *mockRegistry) GlobalKeywords(ctx context.Context) ([]string, error) {
	return m.global, nil
}

func (m *mockRegistry) PersonalKeywords(ctx context.Context, userID string) ([]string, error) {
	return m.personal[userID], nil
}

func (m *mockRegistry) Subscribers(ctx context.Context, group string) ([]string, error) {
	return m.subscribers[group], nil
}

type sentMessage struct {
	to   string
	text string
}

// mockNotifier implements repo.AlertNotifier for testing
type mockNotifier struct {
	mu       sync.Mutex
	toUsers  []sentMessage
	toChats  []sentMessage
	failUser string
}

var errSendFailed = errors.New("send failed")

func (m *mockNotifier) SendToUser(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userID == m.failUser {
		return errSendFailed
	}
	m.toUsers = append(m.toUsers, sentMessage{to: userID, text: text})
	return nil
}

func (m *mockNotifier) SendText(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toChats = append(m.toChats, sentMessage{to: chatID, text: text})
	return nil
}

func (m *mockNotifier) GetChatInfo(ctx context.Context, chatID string) (*repo.ChatInfo, error) {
	return &repo.ChatInfo{ChatID: chatID, Name: "Ops", ChatType: domain.ChatTypeGroup}, nil
}

func (m *mockNotifier) GetChatMembers(ctx context.Context, chatID string) ([]domain.Member, error) {
	return []domain.Member{{UserID: "ou_alice", Name: "Alice"}}, nil
}

func (m *mockNotifier) userMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.toUsers...)
}

func (m *mockNotifier) chatMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.toChats...)
}

type createCall struct {
	userID  string
	keyword string
	payload domain.Payload
}

// mockReminderBook implements ReminderBook for testing
type mockReminderBook struct {
	mu      sync.Mutex
	creates []createCall
	acks    []string
	result  domain.AckResult
	blocked bool
}

func (m *mockReminderBook) Create(ctx context.Context, userID, keyword string, payload domain.Payload) (domain.Reminder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates = append(m.creates, createCall{userID: userID, keyword: keyword, payload: payload})
	if m.blocked {
		return domain.Reminder{}, false, nil
	}
	return domain.Reminder{ID: "r1", UserID: userID, Keyword: keyword}, true, nil
}

func (m *mockReminderBook) Acknowledge(ctx context.Context, userID string) (domain.AckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, userID)
	return m.result, nil
}

// mockSnapshotRepo implements repo.SnapshotRepo for testing
type mockSnapshotRepo struct {
	mu        sync.Mutex
	writes    []map[string]domain.SnapshotEntry
	discarded bool
}

func (m *mockSnapshotRepo) Write(ctx context.Context, entries map[string]domain.SnapshotEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, entries)
	return nil
}

func (m *mockSnapshotRepo) Discard(ctx context.Context) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded = true
	return true, false, nil
}

func (m *mockSnapshotRepo) wasDiscarded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discarded
}

func (m *mockSnapshotRepo) last() map[string]domain.SnapshotEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writes) == 0 {
		return nil
	}
	return m.writes[len(m.writes)-1]
}

// recordingListener implements ReminderListener for testing
type recordingListener struct {
	mu        sync.Mutex
	delivered []domain.Reminder
	panicOn   int
}

func (l *recordingListener) ReminderDue(ctx context.Context, r domain.Reminder) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delivered = append(l.delivered, r)
	if l.panicOn > 0 && r.FireCount == l.panicOn {
		panic("listener exploded")
	}
	return nil
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.delivered)
}

func (l *recordingListener) all() []domain.Reminder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Reminder(nil), l.delivered...)
}

// waitFor polls cond until it holds or the timeout passes
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
