package data

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
)

const (
	RedisPrefix      = "keywordbot" // default fallback
	redisGlobal      = ":global"
	redisPersonal    = ":personal:"
	redisSubscribers = ":subscribers:"
	redisGroups      = ":groups"
	redisPingTimeout = 5 * time.Second
)

// redisRegistry implements repo.KeywordStore on Redis.
// Keyword lists are hashes keyed by the lowercased pattern, subscriptions are sets.
type redisRegistry struct {
	client *redis.Client
	prefix string
}

// NewRedisRegistry connects to Redis and verifies the connection
func NewRedisRegistry(url, prefix string) (repo.KeywordStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if prefix == "" {
		prefix = RedisPrefix
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisRegistry{client: client, prefix: prefix}, nil
}

func (r *redisRegistry) globalKey() string { return r.prefix + redisGlobal }

func (r *redisRegistry) personalKey(userID string) string { return r.prefix + redisPersonal + userID }

func (r *redisRegistry) subscribersKey(group string) string { return r.prefix + redisSubscribers + group }

// GlobalKeywords lists global patterns
func (r *redisRegistry) GlobalKeywords(ctx context.Context) ([]string, error) {
	return r.patterns(ctx, r.globalKey())
}

// PersonalKeywords lists the user's patterns
func (r *redisRegistry) PersonalKeywords(ctx context.Context, userID string) ([]string, error) {
	return r.patterns(ctx, r.personalKey(userID))
}

// Subscribers lists the users subscribed to a group
func (r *redisRegistry) Subscribers(ctx context.Context, group string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.subscribersKey(group)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscribers of %s: %w", group, err)
	}
	sort.Strings(members)
	return members, nil
}

// AddGlobal adds a global pattern
func (r *redisRegistry) AddGlobal(ctx context.Context, pattern string) error {
	return r.addPattern(ctx, r.globalKey(), pattern)
}

// RemoveGlobal removes a global pattern
func (r *redisRegistry) RemoveGlobal(ctx context.Context, pattern string) error {
	return r.removePattern(ctx, r.globalKey(), pattern)
}

// AddPersonal adds a pattern owned by userID
func (r *redisRegistry) AddPersonal(ctx context.Context, userID, pattern string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	return r.addPattern(ctx, r.personalKey(userID), pattern)
}

// RemovePersonal removes a pattern owned by userID
func (r *redisRegistry) RemovePersonal(ctx context.Context, userID, pattern string) error {
	return r.removePattern(ctx, r.personalKey(userID), pattern)
}

// Subscribe subscribes a user to a group
func (r *redisRegistry) Subscribe(ctx context.Context, group, userID string) error {
	if group == "" || userID == "" {
		return ErrEmptySubscription
	}
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.subscribersKey(group), userID)
	pipe.SAdd(ctx, r.prefix+redisGroups, group)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// Unsubscribe removes a user from a group
func (r *redisRegistry) Unsubscribe(ctx context.Context, group, userID string) error {
	if err := r.client.SRem(ctx, r.subscribersKey(group), userID).Err(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	n, err := r.client.SCard(ctx, r.subscribersKey(group)).Result()
	if err != nil {
		return fmt.Errorf("failed to count subscribers: %w", err)
	}
	if n == 0 {
		r.client.SRem(ctx, r.prefix+redisGroups, group)
	}
	return nil
}

// Subscriptions lists every group with its subscribers
func (r *redisRegistry) Subscriptions(ctx context.Context) (map[string][]string, error) {
	groups, err := r.client.SMembers(ctx, r.prefix+redisGroups).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	subs := make(map[string][]string, len(groups))
	for _, group := range groups {
		members, err := r.Subscribers(ctx, group)
		if err != nil {
			return nil, err
		}
		if len(members) > 0 {
			subs[group] = members
		}
	}
	return subs, nil
}

// Close closes the client
func (r *redisRegistry) Close() error {
	return r.client.Close()
}

// Patterns live in a hash: lowercased pattern -> pattern as entered
func (r *redisRegistry) addPattern(ctx context.Context, key, pattern string) error {
	pattern, err := cleanPattern(pattern)
	if err != nil {
		return err
	}
	if err := r.client.HSetNX(ctx, key, strings.ToLower(pattern), pattern).Err(); err != nil {
		return fmt.Errorf("failed to add keyword: %w", err)
	}
	return nil
}

func (r *redisRegistry) removePattern(ctx context.Context, key, pattern string) error {
	if err := r.client.HDel(ctx, key, strings.ToLower(collapseSpaces(pattern))).Err(); err != nil {
		return fmt.Errorf("failed to remove keyword: %w", err)
	}
	return nil
}

func (r *redisRegistry) patterns(ctx context.Context, key string) ([]string, error) {
	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get keywords: %w", err)
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
