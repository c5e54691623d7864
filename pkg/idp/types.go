package idp

import "time"

// AuthEvent identifies a session transition reported to subscribers.
type AuthEvent string

const (
	// EventSignedIn fires after a successful password, signup or MFA grant.
	EventSignedIn AuthEvent = "signed_in"

	// EventTokenRefreshed fires after the access token was replaced via the
	// refresh grant. The user record is carried over unchanged.
	EventTokenRefreshed AuthEvent = "token_refreshed"

	// EventSignedOut fires after sign-out; the session passed to subscribers
	// is nil.
	EventSignedOut AuthEvent = "signed_out"
)

// UserMetadata holds the provider-defined profile fields attached to an
// identity user. These are self-asserted at signup; authoritative role data
// comes from the platform backend, not from here.
type UserMetadata struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      string `json:"role,omitempty"`
}

// IdentityUser is the provider's view of an authenticated user.
type IdentityUser struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	Metadata UserMetadata `json:"user_metadata"`
}

// Session is the provider's proof of authentication. It is created on
// sign-in, replaced wholesale on token refresh, and destroyed on sign-out.
// Consumers must treat it as read-only.
type Session struct {
	// AccessToken is the bearer token for backend API requests.
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type"`

	// RefreshToken is the opaque token used to obtain a replacement session.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the access token expiry in epoch seconds.
	ExpiresAt int64 `json:"expires_at"`

	// User is the provider's user record at issue time.
	User IdentityUser `json:"user"`
}

// Expired reports whether the access token has expired at the given time.
// The comparison is strictly expires_at < now: a token whose expiry equals
// the current second is still accepted. The provider's clock is trusted
// as-is; skew is not compensated.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt < now.Unix()
}

// clone returns a copy so subscribers cannot mutate the stored session.
func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// signInRequest is the password-grant payload.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signUpRequest creates a new identity and returns an initial session.
type signUpRequest struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Metadata UserMetadata `json:"user_metadata"`
}

// refreshRequest is the refresh-grant payload.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// totpRequest completes an MFA challenge.
type totpRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

// recoverRequest starts the password recovery flow.
type recoverRequest struct {
	Email string `json:"email"`
}
