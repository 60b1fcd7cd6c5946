package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/matcher"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/usecase"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/data"
)

// MockNotifier implements repo.AlertNotifier for testing
type MockNotifier struct {
	members []domain.Member
}

func (m *MockNotifier) SendToUser(ctx context.Context, userID, text string) error { return nil }

func (m *MockNotifier) SendText(ctx context.Context, chatID, text string) error { return nil }

func (m *MockNotifier) GetChatInfo(ctx context.Context, chatID string) (*repo.ChatInfo, error) {
	return &repo.ChatInfo{ChatID: chatID, ChatType: domain.ChatTypeGroup}, nil
}

func (m *MockNotifier) GetChatMembers(ctx context.Context, chatID string) ([]domain.Member, error) {
	return m.members, nil
}

// MockReminders implements Reminders for testing
type MockReminders struct {
	reminders []domain.Reminder
	acked     []string
}

func (m *MockReminders) List(ctx context.Context, userID string) ([]domain.Reminder, error) {
	var out []domain.Reminder
	for _, r := range m.reminders {
		if userID == "" || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockReminders) Get(ctx context.Context, id string) (domain.Reminder, error) {
	for _, r := range m.reminders {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Reminder{}, fmt.Errorf("%w: %s", domain.ErrReminderNotFound, id)
}

func (m *MockReminders) Acknowledge(ctx context.Context, userID string) (domain.AckResult, error) {
	m.acked = append(m.acked, userID)
	return domain.AckResult{HasActive: true, Summary: "Reminders acknowledged."}, nil
}

func newTestServer(t *testing.T) (*Server, *MockReminders) {
	t.Helper()

	store, err := data.NewSQLiteRegistry(filepath.Join(t.TempDir(), "keywords.db"))
	if err != nil {
		t.Fatalf("Failed to open registry: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	detect := usecase.NewDetectUsecase(store, matcher.NewEngine(matcher.DefaultTables()), nil, nil, zap.NewNop())
	reminders := &MockReminders{
		reminders: []domain.Reminder{
			{ID: "r1", UserID: "alice", Keyword: "urgent", Status: domain.StatusActive, FireCount: 2,
				Payload: domain.Payload{Message: "This is URGENT!!", Group: "Ops"}},
			{ID: "r2", UserID: "bob", Keyword: "help", Status: domain.StatusCancelled},
		},
	}
	notifier := &MockNotifier{
		members: []domain.Member{
			{UserID: "u1", Name: "Alice"},
			{UserID: "u2", Name: "Bob"},
		},
	}
	return NewServer(store, detect, reminders, notifier, "127.0.0.1:0", zap.NewNop()), reminders
}

func doRequest(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestKeywordsLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	w := doRequest(h, http.MethodPost, "/api/keywords", map[string]string{"keyword": "urgent"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(h, http.MethodGet, "/api/keywords", nil)
	var list struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(list.Keywords) != 1 || list.Keywords[0] != "urgent" {
		t.Errorf("Expected [urgent], got %v", list.Keywords)
	}

	w = doRequest(h, http.MethodDelete, "/api/keywords/urgent", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = doRequest(h, http.MethodGet, "/api/keywords", nil)
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Keywords) != 0 {
		t.Errorf("Expected empty list, got %v", list.Keywords)
	}
}

func TestKeywordsValidation(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"empty keyword", http.MethodPost, "/api/keywords", map[string]string{"keyword": "  "}, http.StatusBadRequest},
		{"bad method", http.MethodPut, "/api/keywords", nil, http.StatusMethodNotAllowed},
		{"personal without user", http.MethodGet, "/api/keywords/personal", nil, http.StatusBadRequest},
		{"personal missing keyword", http.MethodPost, "/api/keywords/personal", map[string]string{"user_id": "alice"}, http.StatusBadRequest},
		{"subscription missing group", http.MethodPost, "/api/subscriptions", map[string]string{"user_id": "alice"}, http.StatusBadRequest},
		{"detect bad method", http.MethodGet, "/api/detect", nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(h, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestPersonalKeywordsAndDetect(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	doRequest(h, http.MethodPost, "/api/keywords/personal", map[string]string{"user_id": "alice", "keyword": "invoice"})
	doRequest(h, http.MethodPost, "/api/subscriptions", map[string]string{"group_id": "g1", "user_id": "alice"})

	w := doRequest(h, http.MethodGet, "/api/keywords/personal?user_id=alice", nil)
	var personal struct {
		Keywords []string `json:"keywords"`
	}
	json.Unmarshal(w.Body.Bytes(), &personal)
	if len(personal.Keywords) != 1 || personal.Keywords[0] != "invoice" {
		t.Errorf("Expected [invoice], got %v", personal.Keywords)
	}

	w = doRequest(h, http.MethodPost, "/api/detect", map[string]string{"text": "where is the invoice?", "group_id": "g1"})
	var detect struct {
		Matches []domain.Match `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detect); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(detect.Matches) != 1 {
		t.Fatalf("Expected 1 match, got %+v", detect.Matches)
	}
	if detect.Matches[0].Scope != domain.ScopePersonal || detect.Matches[0].UserID != "alice" {
		t.Errorf("Expected personal match owned by alice, got %+v", detect.Matches[0])
	}

	w = doRequest(h, http.MethodGet, "/api/subscriptions", nil)
	var subs struct {
		Subscriptions map[string][]string `json:"subscriptions"`
	}
	json.Unmarshal(w.Body.Bytes(), &subs)
	if len(subs.Subscriptions["g1"]) != 1 {
		t.Errorf("Expected one subscriber in g1, got %v", subs.Subscriptions)
	}

	doRequest(h, http.MethodDelete, "/api/subscriptions", map[string]string{"group_id": "g1", "user_id": "alice"})
	w = doRequest(h, http.MethodPost, "/api/detect", map[string]string{"text": "where is the invoice?", "group_id": "g1"})
	json.Unmarshal(w.Body.Bytes(), &detect)
	if len(detect.Matches) != 0 {
		t.Errorf("Expected no match after unsubscribe, got %+v", detect.Matches)
	}
}

func TestDetectEmptyText(t *testing.T) {
	server, _ := newTestServer(t)

	w := doRequest(server.Handler(), http.MethodPost, "/api/detect", map[string]string{"text": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var result map[string][]domain.Match
	json.Unmarshal(w.Body.Bytes(), &result)
	if result["matches"] == nil || len(result["matches"]) != 0 {
		t.Errorf("Expected empty matches array, got %s", w.Body.String())
	}
}

func TestReminders(t *testing.T) {
	server, reminders := newTestServer(t)
	h := server.Handler()

	w := doRequest(h, http.MethodGet, "/api/reminders?user_id=alice", nil)
	var list struct {
		Reminders []ReminderView `json:"reminders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(list.Reminders) != 1 {
		t.Fatalf("Expected 1 reminder, got %d", len(list.Reminders))
	}
	got := list.Reminders[0]
	if got.ReminderID != "r1" || got.ReminderCount != 2 || got.Payload.Group != "Ops" {
		t.Errorf("Unexpected reminder view: %+v", got)
	}

	w = doRequest(h, http.MethodGet, "/api/reminders/r2", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = doRequest(h, http.MethodGet, "/api/reminders/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = doRequest(h, http.MethodPost, "/api/reminders/alice/ack", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var ack domain.AckResult
	json.Unmarshal(w.Body.Bytes(), &ack)
	if !ack.HasActive || len(reminders.acked) != 1 || reminders.acked[0] != "alice" {
		t.Errorf("Expected alice acknowledged, got %+v (%v)", ack, reminders.acked)
	}

	w = doRequest(h, http.MethodGet, "/api/reminders/alice/ack", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandleChatMembers(t *testing.T) {
	server, _ := newTestServer(t)

	w := doRequest(server.Handler(), http.MethodGet, "/api/chat/test-chat/members", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var result map[string][]Member
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if len(result["members"]) != 2 {
		t.Errorf("Expected 2 members, got %d", len(result["members"]))
	}
	if result["members"][0].Name != "Alice" {
		t.Errorf("Expected first member Alice, got %s", result["members"][0].Name)
	}
	if result["members"][0].Mention != `<at user_id="u1">Alice</at>` {
		t.Errorf("Unexpected mention: %s", result["members"][0].Mention)
	}
}

func TestHandleChat_InvalidPath(t *testing.T) {
	server, _ := newTestServer(t)

	w := doRequest(server.Handler(), http.MethodGet, "/api/chat/only-id", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	w = doRequest(server.Handler(), http.MethodGet, "/api/chat/c1/history", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	w := doRequest(server.Handler(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("Expected ok, got %d %q", w.Code, w.Body.String())
	}
}
