package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/stridehq/stride/internal/gateway/store"
)

// HousekeepingService periodically purges cached conversations that have
// been idle beyond the TTL, keeping the cache database from growing without
// bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// ConversationTTL is how long a cached conversation may sit untouched
	// before it is purged.
	ConversationTTL time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour; a non-positive TTL defaults to 7 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, conversationTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if conversationTTL <= 0 {
		conversationTTL = 7 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:           st,
		Logger:          logger,
		Interval:        interval,
		ConversationTTL: conversationTTL,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "conversation_ttl", s.ConversationTTL)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	cutoff := time.Now().Add(-s.ConversationTTL)

	removed, err := s.Store.Conversations().DeleteIdleConversations(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to purge idle conversations", "error", err)
		return
	}

	if removed > 0 {
		s.Logger.Info("purged idle conversations", "removed", removed)
	}
}
