package data

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
)

var (
	ErrEmptyPattern      = errors.New("keyword pattern is empty")
	ErrEmptyUserID       = errors.New("user id is empty")
	ErrEmptySubscription = errors.New("group and user id are required")
)

// Backend names accepted by NewKeywordStore
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// KeywordStoreOptions selects and configures the keyword backend
type KeywordStoreOptions struct {
	Backend     string
	DBPath      string
	RedisURL    string
	RedisPrefix string
}

// NewKeywordStore opens the configured keyword backend
func NewKeywordStore(opts KeywordStoreOptions) (repo.KeywordStore, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		return NewSQLiteRegistry(opts.DBPath)
	case BackendRedis:
		return NewRedisRegistry(opts.RedisURL, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown keyword backend %q", opts.Backend)
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanPattern(pattern string) (string, error) {
	pattern = collapseSpaces(pattern)
	if pattern == "" {
		return "", ErrEmptyPattern
	}
	return pattern, nil
}
