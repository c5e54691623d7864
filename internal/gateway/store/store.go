package store

import (
	"context"
	"errors"
	"time"

	"github.com/stridehq/stride/internal/gateway/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the gateway's cache of last-known-good feed data. Concrete
// drivers (sqlite) implement this. It exposes sub-repositories to keep
// concerns tidy and testable, following the same repo split as the rest of
// the platform's services.
type Store interface {
	Conversations() Conversations
	Notifications() Notifications

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Conversations interface {
	// UpsertConversation replaces the cached message list for a connection
	// and bumps updated_at.
	UpsertConversation(ctx context.Context, conv domain.Conversation) error

	// GetConversation returns the cached conversation for a connection.
	GetConversation(ctx context.Context, connectionID string) (domain.Conversation, error)

	// DeleteIdleConversations removes conversations not updated since the
	// cutoff. Returns the number of rows removed (housekeeping).
	DeleteIdleConversations(ctx context.Context, cutoff time.Time) (int64, error)
}

type Notifications interface {
	// SetCount stores the latest notification count.
	SetCount(ctx context.Context, count int, updatedAt time.Time) error

	// GetCount returns the last stored count, or ErrNotFound if none was
	// ever stored.
	GetCount(ctx context.Context) (int, error)
}
