/*
Package idp provides a client for the external identity provider that backs
Stride sign-in.

# Overview

The identity provider owns authentication: it verifies credentials, issues
bearer access tokens with an expiry, and manages password recovery. This
package wraps its REST surface and additionally maintains the current
Session as process-wide state with change notification, which is what the
rest of the gateway consumes.

# Client and Session

	client := idp.NewClient("https://identity.example.com")

	session, err := client.SignInWithPassword(ctx, "user@example.com", "secret")
	if err != nil {
		var mfaErr *idp.MFARequiredError
		if errors.As(err, &mfaErr) {
			session, err = client.VerifyTOTP(ctx, mfaErr.ChallengeToken, otpCode)
		}
	}

The Session carries the access token, its expiry as epoch seconds, and the
provider's user record. Sessions are replaced wholesale on refresh and
destroyed on sign-out; callers must treat them as read-only snapshots.

# Auth-state changes

Subscribers are notified on every session transition:

	unsubscribe := client.OnAuthStateChange(func(ev idp.AuthEvent, s *idp.Session) {
		// ev is one of EventSignedIn, EventTokenRefreshed, EventSignedOut
	})
	defer unsubscribe()

Callbacks receive a copy of the session (nil on sign-out) and are invoked
synchronously in subscription order.

# Token refresh

ValidToken returns a bearer token that is good for at least another 30
seconds, refreshing through the provider's refresh grant when needed. The
refresh path uses a double-checked write lock so concurrent callers trigger
at most one refresh.
*/
package idp
