package idp

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims the provider mints. The gateway never
// verifies signatures (it has no provider key and is not the token's
// audience enforcer); claims are read for display and for filling in an
// expiry when the session payload omits one.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ParseClaims decodes the claims of an access token without verifying the
// signature.
func ParseClaims(accessToken string) (*Claims, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	return &claims, nil
}

// fillExpiry derives ExpiresAt from the token's exp claim when the provider
// response carried no explicit expiry. Tokens that cannot be parsed are left
// with ExpiresAt zero, which the gate treats as expired.
func fillExpiry(s *Session) {
	if s == nil || s.ExpiresAt != 0 {
		return
	}
	claims, err := ParseClaims(s.AccessToken)
	if err != nil || claims.ExpiresAt == nil {
		return
	}
	s.ExpiresAt = claims.ExpiresAt.Unix()
}
