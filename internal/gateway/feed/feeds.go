// Package feed runs the gateway's three pollers (notification count, chat
// messages, chat seen-status) and serves their last-known-good data.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/stridehq/stride/internal/gateway/domain"
	"github.com/stridehq/stride/internal/gateway/poll"
	"github.com/stridehq/stride/internal/gateway/store"
)

// Source is the backend surface the feeds poll. *backend.Client satisfies
// this.
type Source interface {
	NotificationCount(ctx context.Context) (int, error)
	Messages(ctx context.Context, connectionID string) ([]domain.Message, error)
	MessageStatus(ctx context.Context, connectionID string) ([]domain.MessageStatus, error)
}

// Config sets the per-feed poll cadences.
type Config struct {
	NotificationInterval time.Duration
	MessageInterval      time.Duration
	StatusInterval       time.Duration
}

// ErrNoData is returned when neither the live feed nor the cache has data
// for the request.
var ErrNoData = errors.New("feed: no data")

// Feeds owns the poller set. The notification poller runs for the process
// lifetime; the message and status pollers are keyed to the currently
// viewed connection and are torn down and recreated on every view switch.
//
// Fetched data is written through to the cache store so a gateway restart
// or a failing backend still serves the last good values.
type Feeds struct {
	source Source
	store  store.Store
	logger *slog.Logger
	config Config

	// Banner carries the transient fetch-failure message.
	Banner *poll.Banner

	notifications *poll.Poller[int]

	// switchMu serialises view switches end to end. Without it two
	// concurrent switches can interleave stop/install/start and the
	// loser's freshly started pollers are orphaned, never stopped.
	switchMu sync.Mutex

	mu         sync.Mutex
	count      int
	countKnown bool

	connectionID string
	messages     []domain.Message
	msgPoller    *poll.Poller[[]domain.Message]
	statusPoller *poll.Poller[[]domain.MessageStatus]
}

// New creates the feed set; call Start to begin polling notifications.
func New(source Source, st store.Store, logger *slog.Logger, config Config) *Feeds {
	return &Feeds{
		source: source,
		store:  st,
		logger: logger,
		config: config,
		Banner: poll.NewBanner(),
	}
}

// Start launches the notification poller.
func (f *Feeds) Start() {
	f.notifications = poll.New("notifications", f.config.NotificationInterval,
		f.source.NotificationCount, f.applyCount, f.logger)
	f.notifications.OnError = func(err error) {
		f.Banner.Set("notifications unavailable")
	}
	f.notifications.Start()
}

// Stop tears down every running poller.
func (f *Feeds) Stop() {
	if f.notifications != nil {
		f.notifications.Stop()
	}

	f.switchMu.Lock()
	defer f.switchMu.Unlock()
	f.stopConnectionPollers()
}

// SetConnection switches the viewed mentorship connection. The previous
// connection's pollers are cancelled before the new ones start so their
// timers never overlap. Cached messages for the new connection are loaded
// for a warm start. Switches run one at a time under switchMu.
func (f *Feeds) SetConnection(connectionID string) {
	f.switchMu.Lock()
	defer f.switchMu.Unlock()

	f.stopConnectionPollers()

	f.mu.Lock()
	f.connectionID = connectionID
	f.messages = nil
	f.mu.Unlock()

	if connectionID == "" {
		return
	}

	if conv, err := f.store.Conversations().GetConversation(context.Background(), connectionID); err == nil {
		f.mu.Lock()
		if f.connectionID == connectionID {
			f.messages = conv.Messages
		}
		f.mu.Unlock()
	}

	msgPoller := poll.New("messages", f.config.MessageInterval,
		func(ctx context.Context) ([]domain.Message, error) {
			return f.source.Messages(ctx, connectionID)
		},
		func(messages []domain.Message) {
			f.applyMessages(connectionID, messages)
		}, f.logger)
	msgPoller.OnError = func(err error) {
		f.Banner.Set("messages unavailable")
	}

	statusPoller := poll.New("message-status", f.config.StatusInterval,
		func(ctx context.Context) ([]domain.MessageStatus, error) {
			return f.source.MessageStatus(ctx, connectionID)
		},
		func(statuses []domain.MessageStatus) {
			f.applyStatuses(connectionID, statuses)
		}, f.logger)
	statusPoller.OnError = func(err error) {
		f.Banner.Set("messages unavailable")
	}

	f.mu.Lock()
	f.msgPoller = msgPoller
	f.statusPoller = statusPoller
	f.mu.Unlock()

	msgPoller.Start()
	statusPoller.Start()
}

// stopConnectionPollers stops the per-connection pollers outside the state
// lock; Stop waits for in-flight applies, which take the lock themselves.
func (f *Feeds) stopConnectionPollers() {
	f.mu.Lock()
	msgPoller, statusPoller := f.msgPoller, f.statusPoller
	f.msgPoller, f.statusPoller = nil, nil
	f.mu.Unlock()

	if msgPoller != nil {
		msgPoller.Stop()
	}
	if statusPoller != nil {
		statusPoller.Stop()
	}
}

// Connection returns the currently viewed connection id, or "" when no
// conversation is open.
func (f *Feeds) Connection() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectionID
}

// NotificationCount returns the latest count, falling back to the cache
// store when no poll has landed yet.
func (f *Feeds) NotificationCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	count, known := f.count, f.countKnown
	f.mu.Unlock()

	if known {
		return count, nil
	}

	count, err := f.store.Notifications().GetCount(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrNoData
	}
	return count, err
}

// Messages returns the message list for a connection: live data when it is
// the viewed connection, otherwise the cached copy.
func (f *Feeds) Messages(ctx context.Context, connectionID string) ([]domain.Message, error) {
	f.mu.Lock()
	if f.connectionID == connectionID && f.messages != nil {
		messages := make([]domain.Message, len(f.messages))
		copy(messages, f.messages)
		f.mu.Unlock()
		return messages, nil
	}
	f.mu.Unlock()

	conv, err := f.store.Conversations().GetConversation(ctx, connectionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

// applyCount installs a fresh notification count and writes it through.
func (f *Feeds) applyCount(count int) {
	f.mu.Lock()
	f.count = count
	f.countKnown = true
	f.mu.Unlock()

	if err := f.store.Notifications().SetCount(context.Background(), count, time.Now()); err != nil {
		f.logger.Warn("failed to cache notification count", "error", err)
	}
}

// applyMessages replaces the full message list for the viewed connection.
func (f *Feeds) applyMessages(connectionID string, messages []domain.Message) {
	f.mu.Lock()
	if f.connectionID != connectionID {
		f.mu.Unlock()
		return
	}
	f.messages = messages
	f.mu.Unlock()

	f.cacheConversation(connectionID, messages)
}

// applyStatuses overlays seen flags, but only when at least one flag
// actually differs from the held messages.
func (f *Feeds) applyStatuses(connectionID string, statuses []domain.MessageStatus) {
	seen := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		seen[s.ID] = s.Seen
	}

	f.mu.Lock()
	if f.connectionID != connectionID || f.messages == nil {
		f.mu.Unlock()
		return
	}

	changed := false
	for i := range f.messages {
		if flag, ok := seen[f.messages[i].ID]; ok && f.messages[i].Seen != flag {
			changed = true
			break
		}
	}
	if !changed {
		f.mu.Unlock()
		return
	}

	messages := make([]domain.Message, len(f.messages))
	copy(messages, f.messages)
	for i := range messages {
		if flag, ok := seen[messages[i].ID]; ok {
			messages[i].Seen = flag
		}
	}
	f.messages = messages
	f.mu.Unlock()

	f.cacheConversation(connectionID, messages)
}

func (f *Feeds) cacheConversation(connectionID string, messages []domain.Message) {
	err := f.store.Conversations().UpsertConversation(context.Background(), domain.Conversation{
		ConnectionID: connectionID,
		Messages:     messages,
		UpdatedAt:    time.Now(),
	})
	if err != nil {
		f.logger.Warn("failed to cache conversation", "connection_id", connectionID, "error", err)
	}
}
