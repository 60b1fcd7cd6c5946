package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// sqliteRegistry implements repo.KeywordStore on SQLite
type sqliteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens (or creates) the keyword database
func NewSQLiteRegistry(dbPath string) (repo.KeywordStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS global_keywords (
			pattern TEXT PRIMARY KEY COLLATE NOCASE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS personal_keywords (
			user_id TEXT NOT NULL,
			pattern TEXT NOT NULL COLLATE NOCASE,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, pattern)
		)`,
		`CREATE TABLE IF NOT EXISTS group_subscribers (
			group_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (group_id, user_id)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	return &sqliteRegistry{db: db}, nil
}

// GlobalKeywords lists global patterns
func (r *sqliteRegistry) GlobalKeywords(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx, `SELECT pattern FROM global_keywords ORDER BY created_at, pattern`)
}

// PersonalKeywords lists the user's patterns
func (r *sqliteRegistry) PersonalKeywords(ctx context.Context, userID string) ([]string, error) {
	return r.queryStrings(ctx, `
		SELECT pattern FROM personal_keywords
		WHERE user_id = ?
		ORDER BY created_at, pattern
	`, userID)
}

// Subscribers lists the users subscribed to a group
func (r *sqliteRegistry) Subscribers(ctx context.Context, group string) ([]string, error) {
	return r.queryStrings(ctx, `
		SELECT user_id FROM group_subscribers
		WHERE group_id = ?
		ORDER BY created_at, user_id
	`, group)
}

// AddGlobal adds a global pattern
func (r *sqliteRegistry) AddGlobal(ctx context.Context, pattern string) error {
	pattern, err := cleanPattern(pattern)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO global_keywords (pattern, created_at) VALUES (?, ?)
	`, pattern, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to add global keyword: %w", err)
	}
	return nil
}

// RemoveGlobal removes a global pattern
func (r *sqliteRegistry) RemoveGlobal(ctx context.Context, pattern string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM global_keywords WHERE pattern = ?`, collapseSpaces(pattern))
	if err != nil {
		return fmt.Errorf("failed to remove global keyword: %w", err)
	}
	return nil
}

// AddPersonal adds a pattern owned by userID
func (r *sqliteRegistry) AddPersonal(ctx context.Context, userID, pattern string) error {
	pattern, err := cleanPattern(pattern)
	if err != nil {
		return err
	}
	if userID == "" {
		return ErrEmptyUserID
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO personal_keywords (user_id, pattern, created_at) VALUES (?, ?, ?)
	`, userID, pattern, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to add personal keyword: %w", err)
	}
	return nil
}

// RemovePersonal removes a pattern owned by userID
func (r *sqliteRegistry) RemovePersonal(ctx context.Context, userID, pattern string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM personal_keywords WHERE user_id = ? AND pattern = ?
	`, userID, collapseSpaces(pattern))
	if err != nil {
		return fmt.Errorf("failed to remove personal keyword: %w", err)
	}
	return nil
}

// Subscribe subscribes a user to a group
func (r *sqliteRegistry) Subscribe(ctx context.Context, group, userID string) error {
	if group == "" || userID == "" {
		return ErrEmptySubscription
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO group_subscribers (group_id, user_id, created_at) VALUES (?, ?, ?)
	`, group, userID, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// Unsubscribe removes a user from a group
func (r *sqliteRegistry) Unsubscribe(ctx context.Context, group, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM group_subscribers WHERE group_id = ? AND user_id = ?
	`, group, userID)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// Subscriptions lists every group with its subscribers
func (r *sqliteRegistry) Subscriptions(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT group_id, user_id FROM group_subscribers
		ORDER BY group_id, created_at, user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make(map[string][]string)
	for rows.Next() {
		var group, userID string
		if err := rows.Scan(&group, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs[group] = append(subs[group], userID)
	}
	return subs, rows.Err()
}

// Close closes the database
func (r *sqliteRegistry) Close() error {
	return r.db.Close()
}

func (r *sqliteRegistry) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
