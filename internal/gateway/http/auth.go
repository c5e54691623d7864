package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stridehq/stride/pkg/httpx"
	"github.com/stridehq/stride/pkg/idp"
	"github.com/stridehq/stride/pkg/slogx"
)

// AuthHandler fronts the identity provider's credential flows.
type AuthHandler struct {
	IDP    *idp.Client
	Logger *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type mfaRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

type resetRequest struct {
	Email string `json:"email"`
}

// HandleLogin signs in with email and password.
//
//	@Summary		Sign in
//	@Description	Authenticates with the identity provider. Accounts with a second factor enrolled receive a 409 MFA challenge; complete it via /v1/auth/mfa.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	AuthResponse
//	@Failure		400		{object}	ErrorResponse	"Malformed request"
//	@Failure		401		{object}	ErrorResponse	"Invalid credentials"
//	@Failure		409		{object}	MFAChallengeResponse
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	session, err := h.IDP.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		var mfaErr *idp.MFARequiredError
		if errors.As(err, &mfaErr) {
			httpx.WriteJSON(w, http.StatusConflict, MFAChallengeResponse{
				Error:          idp.ErrorCodeMFARequired,
				ChallengeToken: mfaErr.ChallengeToken,
				Methods:        mfaErr.Methods,
			})
			return
		}

		log.Info("sign-in failed", "email", req.Email, "error", err)
		writeProviderError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, AuthResponse{
		User:      session.User,
		ExpiresAt: session.ExpiresAt,
	})
}

// HandleSignup registers a new account.
//
//	@Summary		Sign up
//	@Description	Registers a new identity and signs it in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		signupRequest	true	"New account"
//	@Success		200		{object}	AuthResponse
//	@Failure		400		{object}	ErrorResponse	"Malformed request"
//	@Failure		422		{object}	ErrorResponse	"Email already registered"
//	@Router			/v1/auth/signup [post].
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	session, err := h.IDP.SignUp(ctx, req.Email, req.Password, idp.UserMetadata{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		log.Info("sign-up failed", "email", req.Email, "error", err)
		writeProviderError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, AuthResponse{
		User:      session.User,
		ExpiresAt: session.ExpiresAt,
	})
}

// HandleMFA completes a pending TOTP challenge from HandleLogin.
//
//	@Summary		Complete MFA challenge
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mfaRequest	true	"Challenge token and code"
//	@Success		200		{object}	AuthResponse
//	@Failure		400		{object}	ErrorResponse	"Malformed request"
//	@Failure		401		{object}	ErrorResponse	"Wrong or expired code"
//	@Router			/v1/auth/mfa [post].
func (h *AuthHandler) HandleMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req mfaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChallengeToken == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "challenge_token and code are required")
		return
	}

	session, err := h.IDP.VerifyTOTP(ctx, req.ChallengeToken, req.Code)
	if err != nil {
		writeProviderError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, AuthResponse{
		User:      session.User,
		ExpiresAt: session.ExpiresAt,
	})
}

// HandleLogout revokes the session and clears local state.
//
//	@Summary	Sign out
//	@Tags		Auth
//	@Success	204	"Signed out"
//	@Router		/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// The local session is cleared even when the provider revoke fails;
	// sign-out must always succeed from the caller's point of view.
	if err := h.IDP.SignOut(ctx); err != nil {
		log.Warn("provider revoke failed during sign-out", "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleReset starts the password recovery flow.
//
//	@Summary		Request password reset
//	@Description	Always responds 202 whether or not the email exists.
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	resetRequest	true	"Account email"
//	@Success		202		"Reset email queued"
//	@Failure		400		{object}	ErrorResponse	"Malformed request"
//	@Router			/v1/auth/reset [post].
func (h *AuthHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.IDP.ResetPasswordForEmail(ctx, req.Email); err != nil {
		// Deliberately not surfaced to the caller; enumeration resistance.
		log.Warn("password reset request failed", "error", err)
	}

	w.WriteHeader(http.StatusAccepted)
}

// writeProviderError maps identity provider errors onto the gateway's error
// body, preserving the provider's status code where it is meaningful.
func writeProviderError(w http.ResponseWriter, err error) {
	var apiErr *idp.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeError(w, status, apiErr.Code, apiErr.Description)
		return
	}

	writeError(w, http.StatusBadGateway, "identity_unavailable", "identity provider request failed")
}
