package http

import (
	"net/http"

	"github.com/stridehq/stride/internal/gateway/domain"
	"github.com/stridehq/stride/pkg/httpx"
	"github.com/stridehq/stride/pkg/idp"
)

// ErrorResponse is the gateway's error body.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	httpx.WriteJSON(w, status, ErrorResponse{Error: code, Description: description})
}

// HealthChecks reports the state of the gateway's dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Identity string `json:"identity"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// AuthResponse is returned by the sign-in and sign-up endpoints.
type AuthResponse struct {
	User      idp.IdentityUser `json:"user"`
	ExpiresAt int64            `json:"expires_at"`
}

// MFAChallengeResponse is returned when sign-in requires a second factor.
type MFAChallengeResponse struct {
	Error          string   `json:"error"`
	ChallengeToken string   `json:"challenge_token"`
	Methods        []string `json:"methods"`
}

// SessionResponse is the merged session view for the UI.
type SessionResponse struct {
	User    *domain.MergedUser `json:"user"`
	Loading bool               `json:"loading"`
}

// NavResponse lists the navigation entries the user may see.
type NavResponse struct {
	Entries []domain.NavEntry `json:"entries"`
}

// CountResponse carries a notification count plus any transient feed banner.
type CountResponse struct {
	Count  int    `json:"count"`
	Banner string `json:"banner,omitempty"`
}

// MessagesResponse carries a connection's message list plus any transient
// feed banner.
type MessagesResponse struct {
	ConnectionID string           `json:"connection_id"`
	Messages     []domain.Message `json:"messages"`
	Banner       string           `json:"banner,omitempty"`
}

// StatusResponse carries the per-message seen flags for a connection.
type StatusResponse struct {
	ConnectionID string                 `json:"connection_id"`
	Statuses     []domain.MessageStatus `json:"statuses"`
}

// AdminOverviewResponse is the admin landing payload.
type AdminOverviewResponse struct {
	User              *domain.MergedUser `json:"user"`
	NotificationCount int                `json:"notification_count"`
}
