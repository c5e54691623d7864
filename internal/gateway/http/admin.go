package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/stridehq/stride/internal/gateway/feed"
	"github.com/stridehq/stride/pkg/httpx"
)

// notificationCounter is the feed surface the admin overview needs.
type notificationCounter interface {
	NotificationCount(ctx context.Context) (int, error)
}

// AdminOverviewHandler serves the admin landing payload. The route gate in
// front of it enforces the ADMIN/MODERATOR requirement.
type AdminOverviewHandler struct {
	Feeds notificationCounter
}

// ServeHTTP returns the gated admin overview.
//
//	@Summary	Admin overview
//	@Tags		Admin
//	@Produce	json
//	@Success	200	{object}	AdminOverviewResponse
//	@Failure	302	"Redirect to login or root when the gate rejects"
//	@Failure	503	{object}	ErrorResponse	"Session still resolving"
//	@Router		/v1/admin/overview [get].
func (h *AdminOverviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.Feeds.NotificationCount(ctx)
	if err != nil && !errors.Is(err, feed.ErrNoData) {
		writeError(w, http.StatusInternalServerError, "server_error", "failed to load notification count")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, AdminOverviewResponse{
		User:              userFromContext(ctx),
		NotificationCount: count,
	})
}
