package idp

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned by the identity provider.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeEmailTaken         = "email_taken"
	ErrorCodeMFARequired        = "mfa_required"
	ErrorCodeServerError        = "server_error"
)

// APIError represents an error response from the identity provider.
type APIError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int `json:"-"`

	// Code is the provider error code (e.g., "invalid_credentials")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// MFARequiredError is returned when the account has TOTP enrolled and the
// password grant alone is not sufficient. It is delivered with HTTP 409
// because the credentials were valid but conflict with the account's MFA
// state. Complete the sign-in with Client.VerifyTOTP.
type MFARequiredError struct {
	// ChallengeToken identifies the pending challenge when submitting the code
	ChallengeToken string `json:"challenge_token"`

	// Methods lists the available second factors (e.g., ["totp"])
	Methods []string `json:"methods"`
}

// Error implements the error interface.
func (e *MFARequiredError) Error() string {
	return fmt.Sprintf("mfa required: available methods=%v", e.Methods)
}

// parseErrorResponse turns a non-2xx identity provider response into a typed
// error. Returns nil for success status codes.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Check for an MFA challenge (409 Conflict)
	if resp.StatusCode == http.StatusConflict {
		var mfaResp struct {
			Error          string   `json:"error"`
			ChallengeToken string   `json:"challenge_token"`
			Methods        []string `json:"methods"`
		}
		if err := json.Unmarshal(body, &mfaResp); err == nil {
			if mfaResp.Error == ErrorCodeMFARequired && mfaResp.ChallengeToken != "" {
				return &MFARequiredError{
					ChallengeToken: mfaResp.ChallengeToken,
					Methods:        mfaResp.Methods,
				}
			}
		}
	}

	// Try parsing as a standard error body
	var errResp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback: generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
