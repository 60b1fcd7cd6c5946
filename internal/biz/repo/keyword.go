package repo

import "context"

// KeywordRegistry supplies keyword and subscription data to the detector
type KeywordRegistry interface {
	// GlobalKeywords returns patterns checked against every message
	GlobalKeywords(ctx context.Context) ([]string, error)

	// PersonalKeywords returns the patterns owned by userID
	PersonalKeywords(ctx context.Context, userID string) ([]string, error)

	// Subscribers returns the users subscribed to a group
	Subscribers(ctx context.Context, group string) ([]string, error)
}

// KeywordAdmin edits the registry
// Adding an existing entry or removing a missing one is not an error
type KeywordAdmin interface {
	AddGlobal(ctx context.Context, pattern string) error
	RemoveGlobal(ctx context.Context, pattern string) error

	AddPersonal(ctx context.Context, userID, pattern string) error
	RemovePersonal(ctx context.Context, userID, pattern string) error

	Subscribe(ctx context.Context, group, userID string) error
	Unsubscribe(ctx context.Context, group, userID string) error

	// Subscriptions lists every group with its subscribers
	Subscriptions(ctx context.Context) (map[string][]string, error)
}

// KeywordStore is a registry that can also be edited
// Implemented by the sqlite and redis adapters
type KeywordStore interface {
	KeywordRegistry
	KeywordAdmin
	Close() error
}
