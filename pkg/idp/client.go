package idp

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"
)

// Client is a client for the identity provider. Besides wrapping the REST
// endpoints it owns the current Session as process-wide state: sign-in,
// refresh and sign-out all flow through here, and every transition is
// announced to OnAuthStateChange subscribers.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	mu          sync.RWMutex
	session     *Session
	subscribers map[int]func(AuthEvent, *Session)
	nextSubID   int
}

// NewClient creates a new identity provider client with no active session.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		subscribers: make(map[int]func(AuthEvent, *Session)),
	}
}

// SignInWithPassword authenticates with email and password and stores the
// resulting session. If the account has a second factor enrolled the error
// is a *MFARequiredError; complete the sign-in with VerifyTOTP.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	session, err := c.requestSession(ctx, "/v1/token?grant_type=password", signInRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	c.setSession(session, EventSignedIn)
	return session.clone(), nil
}

// SignUp registers a new identity and stores the initial session the
// provider returns.
func (c *Client) SignUp(ctx context.Context, email, password string, meta UserMetadata) (*Session, error) {
	session, err := c.requestSession(ctx, "/v1/signup", signUpRequest{
		Email:    email,
		Password: password,
		Metadata: meta,
	})
	if err != nil {
		return nil, err
	}

	c.setSession(session, EventSignedIn)
	return session.clone(), nil
}

// VerifyTOTP completes a pending MFA challenge from SignInWithPassword.
func (c *Client) VerifyTOTP(ctx context.Context, challengeToken, code string) (*Session, error) {
	session, err := c.requestSession(ctx, "/v1/token?grant_type=mfa_totp", totpRequest{
		ChallengeToken: challengeToken,
		Code:           code,
	})
	if err != nil {
		return nil, err
	}

	c.setSession(session, EventSignedIn)
	return session.clone(), nil
}

// RestoreSession installs a session obtained out of band (e.g. loaded from
// the on-disk token cache at startup). Expired sessions are refreshed on
// first use rather than rejected here.
func (c *Client) RestoreSession(session *Session) {
	if session == nil {
		return
	}
	c.setSession(session.clone(), EventSignedIn)
}

// SignOut revokes the session at the provider and clears it locally. The
// local session is cleared even when the revoke request fails; an
// unreachable provider must not leave the application signed in.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil {
		return nil
	}

	err := c.doJSON(ctx, http.MethodPost, "/v1/logout", nil, session.AccessToken, nil, http.StatusNoContent)
	c.setSession(nil, EventSignedOut)
	return err
}

// ResetPasswordForEmail starts the password recovery flow. The provider
// responds identically whether or not the email exists.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/recover", recoverRequest{Email: email}, "", nil, http.StatusOK)
}

// CurrentSession returns a copy of the active session, or nil when signed
// out.
func (c *Client) CurrentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.clone()
}

// OnAuthStateChange registers a callback invoked on every session
// transition. The returned function removes the subscription.
func (c *Client) OnAuthStateChange(fn func(AuthEvent, *Session)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// setSession replaces the stored session and notifies subscribers.
// Callbacks run outside the lock, in subscription order, with a copy of the
// new session.
func (c *Client) setSession(session *Session, event AuthEvent) {
	c.mu.Lock()
	c.session = session

	ids := make([]int, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(AuthEvent, *Session), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subscribers[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, session.clone())
	}
}
