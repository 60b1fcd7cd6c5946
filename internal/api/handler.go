package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/usecase"
)

// Reminders is the reminder surface exposed over HTTP
type Reminders interface {
	List(ctx context.Context, userID string) ([]domain.Reminder, error)
	Get(ctx context.Context, id string) (domain.Reminder, error)
	Acknowledge(ctx context.Context, userID string) (domain.AckResult, error)
}

// Server provides the HTTP admin API
type Server struct {
	keywords  repo.KeywordStore
	detect    *usecase.DetectUsecase
	reminders Reminders
	notifier  repo.AlertNotifier
	logger    *zap.Logger

	server *http.Server
	addr   string
}

// Member represents a chat member
type Member struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Mention string `json:"mention"`
}

// ReminderView is the JSON form of a reminder
type ReminderView struct {
	domain.SnapshotEntry
	Payload domain.Payload `json:"payload"`
}

// NewServer creates a new API server. notifier may be nil when no chat
// platform is configured.
func NewServer(
	keywords repo.KeywordStore,
	detect *usecase.DetectUsecase,
	reminders Reminders,
	notifier repo.AlertNotifier,
	addr string,
	logger *zap.Logger,
) *Server {
	return &Server{
		keywords:  keywords,
		detect:    detect,
		reminders: reminders,
		notifier:  notifier,
		addr:      addr,
		logger:    logger.Named("api"),
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Keyword management
	mux.HandleFunc("/api/keywords", s.handleKeywords)
	mux.HandleFunc("/api/keywords/personal", s.handlePersonalKeywords)
	mux.HandleFunc("/api/keywords/", s.handleKeywordItem)

	// Group subscriptions
	mux.HandleFunc("/api/subscriptions", s.handleSubscriptions)

	// Detection dry run
	mux.HandleFunc("/api/detect", s.handleDetect)

	// Reminders
	mux.HandleFunc("/api/reminders", s.handleReminders)
	mux.HandleFunc("/api/reminders/", s.handleReminderItem)

	// Chat operations
	mux.HandleFunc("/api/chat/", s.handleChat)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("api_starting", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============ Keyword Handlers ============

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		keywords, err := s.keywords.GlobalKeywords(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"keywords": nonNil(keywords)})

	case http.MethodPost:
		var req struct {
			Keyword string `json:"keyword"`
		}
		if !s.decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Keyword) == "" {
			http.Error(w, "keyword is required", http.StatusBadRequest)
			return
		}
		if err := s.keywords.AddGlobal(ctx, req.Keyword); err != nil {
			s.writeError(w, err)
			return
		}
		s.logger.Info("global_keyword_added", zap.String("keyword", req.Keyword))
		s.writeJSON(w, map[string]interface{}{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleKeywordItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	keyword := strings.TrimPrefix(r.URL.Path, "/api/keywords/")
	if keyword == "" {
		http.Error(w, "keyword is required", http.StatusBadRequest)
		return
	}

	if err := s.keywords.RemoveGlobal(r.Context(), keyword); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("global_keyword_removed", zap.String("keyword", keyword))
	s.writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) handlePersonalKeywords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		keywords, err := s.keywords.PersonalKeywords(ctx, userID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"user_id": userID, "keywords": nonNil(keywords)})

	case http.MethodPost, http.MethodDelete:
		var req struct {
			UserID  string `json:"user_id"`
			Keyword string `json:"keyword"`
		}
		if !s.decode(w, r, &req) {
			return
		}
		if req.UserID == "" || strings.TrimSpace(req.Keyword) == "" {
			http.Error(w, "user_id and keyword are required", http.StatusBadRequest)
			return
		}

		var err error
		if r.Method == http.MethodPost {
			err = s.keywords.AddPersonal(ctx, req.UserID, req.Keyword)
		} else {
			err = s.keywords.RemovePersonal(ctx, req.UserID, req.Keyword)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ============ Subscription Handlers ============

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		subs, err := s.keywords.Subscriptions(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if subs == nil {
			subs = map[string][]string{}
		}
		s.writeJSON(w, map[string]interface{}{"subscriptions": subs})

	case http.MethodPost, http.MethodDelete:
		var req struct {
			GroupID string `json:"group_id"`
			UserID  string `json:"user_id"`
		}
		if !s.decode(w, r, &req) {
			return
		}
		if req.GroupID == "" || req.UserID == "" {
			http.Error(w, "group_id and user_id are required", http.StatusBadRequest)
			return
		}

		var err error
		if r.Method == http.MethodPost {
			err = s.keywords.Subscribe(ctx, req.GroupID, req.UserID)
		} else {
			err = s.keywords.Unsubscribe(ctx, req.GroupID, req.UserID)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ============ Detect Handler ============

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text    string `json:"text"`
		GroupID string `json:"group_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	matches := s.detect.DetectKeywords(r.Context(), req.Text, req.GroupID)
	s.writeJSON(w, map[string]interface{}{"matches": matches})
}

// ============ Reminder Handlers ============

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rs, err := s.reminders.List(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]ReminderView, len(rs))
	for i := range rs {
		views[i] = toView(&rs[i])
	}
	s.writeJSON(w, map[string]interface{}{"reminders": views})
}

func (s *Server) handleReminderItem(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/reminders/{id} or /api/reminders/{user_id}/ack
	path := strings.TrimPrefix(r.URL.Path, "/api/reminders/")
	parts := strings.Split(path, "/")
	if parts[0] == "" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rem, err := s.reminders.Get(r.Context(), parts[0])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, toView(&rem))

	case len(parts) == 2 && parts[1] == "ack":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		res, err := s.reminders.Acknowledge(r.Context(), parts[0])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, res)

	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

func toView(r *domain.Reminder) ReminderView {
	return ReminderView{SnapshotEntry: r.ToSnapshot(), Payload: r.Payload}
}

// ============ Chat Handlers ============

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/chat/{chat_id}/members
	path := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	switch parts[1] {
	case "members":
		s.handleChatMembers(w, r, parts[0])
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

func (s *Server) handleChatMembers(w http.ResponseWriter, r *http.Request, chatID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.notifier == nil {
		http.Error(w, "chat platform not configured", http.StatusServiceUnavailable)
		return
	}

	members, err := s.notifier.GetChatMembers(r.Context(), chatID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"members": ConvertMembers(members)})
}

// ============ Helpers ============

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrReminderNotFound) {
		status = http.StatusNotFound
	} else {
		s.logger.Warn("request_failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ConvertMembers converts domain.Member to api.Member
func ConvertMembers(members []domain.Member) []Member {
	result := make([]Member, len(members))
	for i := range members {
		result[i] = Member{ID: members[i].UserID, Name: members[i].Name, Mention: members[i].FormatMention()}
	}
	return result
}
