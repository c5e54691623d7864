package http

import (
	"net/http"

	"github.com/stridehq/stride/internal/gateway/domain"
	"github.com/stridehq/stride/internal/gateway/identity"
	"github.com/stridehq/stride/pkg/httpx"
)

// NavHandler builds the silently gated navigation payload.
type NavHandler struct {
	Refresher *identity.Refresher
}

// ServeHTTP returns the navigation entries the current user may see.
// Entries failing their role check are omitted without error; while loading
// or signed out the list is empty. This is the silent half of the
// authorization gate.
//
//	@Summary	Navigation entries
//	@Tags		Session
//	@Produce	json
//	@Success	200	{object}	NavResponse
//	@Router		/v1/nav [get].
func (h *NavHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, loading := h.Refresher.Snapshot()

	entries := []domain.NavEntry{}
	if !loading && user != nil {
		for _, entry := range domain.DefaultNav {
			if domain.UserAuthorized(user, entry.Required) {
				entries = append(entries, entry)
			}
		}
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, NavResponse{Entries: entries})
}
