package http

import (
	"net/http"

	"github.com/stridehq/stride/internal/gateway/identity"
	"github.com/stridehq/stride/pkg/httpx"
)

// SessionHandler serves the merged session view.
type SessionHandler struct {
	Refresher *identity.Refresher
}

// ServeHTTP returns the current MergedUser and loading flag.
//
//	@Summary		Current session
//	@Description	Returns the merged user record. "user" is null while signed out; "loading" is true until the first session resolution completes.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Router			/v1/session [get].
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, loading := h.Refresher.Snapshot()

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, SessionResponse{
		User:    user,
		Loading: loading,
	})
}
