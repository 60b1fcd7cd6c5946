package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/api"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
)

// Client is the HTTP client for a running keywordbot API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. addr may be a bare host:port.
func NewClient(addr string) *Client {
	baseURL := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ============ Keyword Operations ============

// GlobalKeywords lists the global keywords
func (c *Client) GlobalKeywords(ctx context.Context) ([]string, error) {
	var result struct {
		Keywords []string `json:"keywords"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/keywords", nil, &result); err != nil {
		return nil, err
	}
	return result.Keywords, nil
}

// AddGlobal adds a global keyword
func (c *Client) AddGlobal(ctx context.Context, keyword string) error {
	body := map[string]string{"keyword": keyword}
	return c.do(ctx, http.MethodPost, "/api/keywords", body, nil)
}

// RemoveGlobal removes a global keyword
func (c *Client) RemoveGlobal(ctx context.Context, keyword string) error {
	return c.do(ctx, http.MethodDelete, "/api/keywords/"+url.PathEscape(keyword), nil, nil)
}

// PersonalKeywords lists the keywords of a user
func (c *Client) PersonalKeywords(ctx context.Context, userID string) ([]string, error) {
	var result struct {
		Keywords []string `json:"keywords"`
	}
	path := "/api/keywords/personal?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Keywords, nil
}

// AddPersonal adds a personal keyword
func (c *Client) AddPersonal(ctx context.Context, userID, keyword string) error {
	body := map[string]string{"user_id": userID, "keyword": keyword}
	return c.do(ctx, http.MethodPost, "/api/keywords/personal", body, nil)
}

// RemovePersonal removes a personal keyword
func (c *Client) RemovePersonal(ctx context.Context, userID, keyword string) error {
	body := map[string]string{"user_id": userID, "keyword": keyword}
	return c.do(ctx, http.MethodDelete, "/api/keywords/personal", body, nil)
}

// ============ Subscription Operations ============

// Subscriptions lists every group with its subscribers
func (c *Client) Subscriptions(ctx context.Context) (map[string][]string, error) {
	var result struct {
		Subscriptions map[string][]string `json:"subscriptions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/subscriptions", nil, &result); err != nil {
		return nil, err
	}
	return result.Subscriptions, nil
}

// Subscribe subscribes a user to a group
func (c *Client) Subscribe(ctx context.Context, groupID, userID string) error {
	body := map[string]string{"group_id": groupID, "user_id": userID}
	return c.do(ctx, http.MethodPost, "/api/subscriptions", body, nil)
}

// Unsubscribe removes a user from a group
func (c *Client) Unsubscribe(ctx context.Context, groupID, userID string) error {
	body := map[string]string{"group_id": groupID, "user_id": userID}
	return c.do(ctx, http.MethodDelete, "/api/subscriptions", body, nil)
}

// ============ Detection ============

// Detect runs the matcher on text as if it was sent in group
func (c *Client) Detect(ctx context.Context, text, groupID string) ([]domain.Match, error) {
	var result struct {
		Matches []domain.Match `json:"matches"`
	}
	body := map[string]string{"text": text, "group_id": groupID}
	if err := c.do(ctx, http.MethodPost, "/api/detect", body, &result); err != nil {
		return nil, err
	}
	return result.Matches, nil
}

// ============ Reminder Operations ============

// Reminders lists tracked reminders, all users when userID is empty
func (c *Client) Reminders(ctx context.Context, userID string) ([]api.ReminderView, error) {
	var result struct {
		Reminders []api.ReminderView `json:"reminders"`
	}
	path := "/api/reminders"
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Reminders, nil
}

// Acknowledge stops the pending reminders of a user
func (c *Client) Acknowledge(ctx context.Context, userID string) (domain.AckResult, error) {
	var result domain.AckResult
	path := fmt.Sprintf("/api/reminders/%s/ack", url.PathEscape(userID))
	err := c.do(ctx, http.MethodPost, path, nil, &result)
	return result, err
}

// ============ Chat Operations ============

// ChatMembers gets members of a chat
func (c *Client) ChatMembers(ctx context.Context, chatID string) ([]api.Member, error) {
	var result struct {
		Members []api.Member `json:"members"`
	}
	path := fmt.Sprintf("/api/chat/%s/members", url.PathEscape(chatID))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Members, nil
}

// ============ HTTP Helpers ============

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
