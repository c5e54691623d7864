// Package backend is the gateway's client for the platform backend API.
// Every request carries a bearer token obtained from the token source, so
// calls transparently ride the identity client's auto-refresh.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stridehq/stride/internal/gateway/domain"
)

// TokenSource supplies a valid bearer token for backend requests.
// *idp.Client satisfies this.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
}

// Client calls the platform backend REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	tokens TokenSource
}

// NewClient creates a backend client using the given token source.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tokens: tokens,
	}
}

// Profile is the backend's authoritative record for the signed-in user.
type Profile struct {
	ID                 string   `json:"id"`
	Email              string   `json:"email"`
	FirstName          string   `json:"first_name"`
	LastName           string   `json:"last_name"`
	AvatarURL          string   `json:"avatar_url"`
	PrimaryRole        string   `json:"primary_role"`
	Roles              []string `json:"roles"`
	MentorshipEligible bool     `json:"mentorship_eligible"`
}

// Me fetches the signed-in user's profile and role data.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, "/api/auth/me", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// NotificationCount fetches the unread notification count.
func (c *Client) NotificationCount(ctx context.Context) (int, error) {
	var payload struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/notifications/count", &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}

// Messages fetches the full message list for a mentorship connection.
func (c *Client) Messages(ctx context.Context, connectionID string) ([]domain.Message, error) {
	var messages []domain.Message
	path := "/messages/" + url.PathEscape(connectionID)
	if err := c.get(ctx, path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// MessageStatus fetches the per-message seen flags for a connection.
func (c *Client) MessageStatus(ctx context.Context, connectionID string) ([]domain.MessageStatus, error) {
	var statuses []domain.MessageStatus
	path := "/messages/" + url.PathEscape(connectionID) + "/status"
	if err := c.get(ctx, path, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// get performs an authenticated GET and decodes a JSON 200 response into
// target. Non-200 responses become typed errors.
func (c *Client) get(ctx context.Context, path string, target any) error {
	token, err := c.tokens.ValidToken(ctx)
	if err != nil {
		return fmt.Errorf("backend: no usable token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("backend: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseErrorResponse(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("backend: failed to decode response: %w", err)
	}

	return nil
}
