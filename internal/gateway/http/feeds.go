package http

import (
	"errors"
	"net/http"

	"github.com/stridehq/stride/internal/gateway/domain"
	"github.com/stridehq/stride/internal/gateway/feed"
	"github.com/stridehq/stride/pkg/httpx"
	"github.com/stridehq/stride/pkg/slogx"
)

// FeedHandler serves poller-backed data: notification counts and chat
// messages with their seen flags.
type FeedHandler struct {
	Feeds *feed.Feeds
}

// HandleNotificationCount returns the latest notification count.
//
//	@Summary		Notification count
//	@Description	Served from the notification poller, falling back to the cache store. "banner" carries a transient message when the last fetch failed.
//	@Tags			Feeds
//	@Produce		json
//	@Success		200	{object}	CountResponse
//	@Router			/v1/notifications/count [get].
func (h *FeedHandler) HandleNotificationCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	count, err := h.Feeds.NotificationCount(ctx)
	if err != nil && !errors.Is(err, feed.ErrNoData) {
		log.Warn("failed to read notification count", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to load notification count")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, CountResponse{
		Count:  count,
		Banner: h.Feeds.Banner.Message(),
	})
}

// HandleMessages returns the message list for a connection. Requesting a
// connection other than the currently viewed one is a view switch: the old
// connection's pollers are torn down and new ones started.
//
//	@Summary	Connection messages
//	@Tags		Feeds
//	@Produce	json
//	@Param		connectionID	path		string	true	"Mentorship connection id"
//	@Success	200				{object}	MessagesResponse
//	@Router		/v1/messages/{connectionID} [get].
func (h *FeedHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	connectionID := r.PathValue("connectionID")
	if connectionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "connection id is required")
		return
	}

	if h.Feeds.Connection() != connectionID {
		log.Info("switching viewed connection", "connection_id", connectionID)
		h.Feeds.SetConnection(connectionID)
	}

	messages, err := h.Feeds.Messages(ctx, connectionID)
	if err != nil && !errors.Is(err, feed.ErrNoData) {
		log.Warn("failed to read messages", "connection_id", connectionID, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to load messages")
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, MessagesResponse{
		ConnectionID: connectionID,
		Messages:     messages,
		Banner:       h.Feeds.Banner.Message(),
	})
}

// HandleStatus returns the seen flags for a connection's messages.
//
//	@Summary	Connection seen-status
//	@Tags		Feeds
//	@Produce	json
//	@Param		connectionID	path		string	true	"Mentorship connection id"
//	@Success	200				{object}	StatusResponse
//	@Router		/v1/messages/{connectionID}/status [get].
func (h *FeedHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	connectionID := r.PathValue("connectionID")
	if connectionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "connection id is required")
		return
	}

	messages, err := h.Feeds.Messages(ctx, connectionID)
	if err != nil && !errors.Is(err, feed.ErrNoData) {
		log.Warn("failed to read message status", "connection_id", connectionID, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to load message status")
		return
	}

	statuses := make([]domain.MessageStatus, 0, len(messages))
	for _, m := range messages {
		statuses = append(statuses, domain.MessageStatus{ID: m.ID, Seen: m.Seen})
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, StatusResponse{
		ConnectionID: connectionID,
		Statuses:     statuses,
	})
}
