package idp

import (
	"context"
	"fmt"
	"time"
)

// refreshBuffer is subtracted from the expiry when deciding whether a token
// is still usable, so callers never hold a token about to lapse mid-flight.
const refreshBuffer = 30 * time.Second

// ValidToken returns a bearer token good for at least another refreshBuffer,
// refreshing through the provider when the current one is too close to
// expiry. Concurrent callers trigger at most one refresh.
func (c *Client) ValidToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	session := c.session
	if session != nil && !tokenStale(session, time.Now()) {
		token := session.AccessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	if session == nil {
		return "", fmt.Errorf("no active session")
	}

	return c.refreshLocked(ctx)
}

// RefreshSession forces a refresh grant regardless of the current expiry and
// installs the replacement session.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	if _, err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return c.CurrentSession(), nil
}

// refreshLocked performs the refresh grant under the write lock with a
// double-check, since another goroutine may have refreshed while this one
// waited for the lock.
func (c *Client) refreshLocked(ctx context.Context) (string, error) {
	c.mu.Lock()

	session := c.session
	if session == nil {
		c.mu.Unlock()
		return "", fmt.Errorf("no active session")
	}
	if !tokenStale(session, time.Now()) {
		token := session.AccessToken
		c.mu.Unlock()
		return token, nil
	}
	if session.RefreshToken == "" {
		c.mu.Unlock()
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	refreshToken := session.RefreshToken
	c.mu.Unlock()

	// The HTTP round trip happens outside the lock; setSession below
	// serialises the install and the subscriber callbacks.
	replacement, err := c.requestSession(ctx, "/v1/token?grant_type=refresh_token", refreshRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return "", fmt.Errorf("failed to refresh session: %w", err)
	}

	c.setSession(replacement, EventTokenRefreshed)
	return replacement.AccessToken, nil
}

// tokenStale reports whether the session's token is expired or within the
// refresh buffer of expiring.
func tokenStale(s *Session, now time.Time) bool {
	return s.ExpiresAt < now.Add(refreshBuffer).Unix()
}
