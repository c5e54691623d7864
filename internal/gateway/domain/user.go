package domain

// Platform roles as the backend reports them.
const (
	RoleAdmin      = "ADMIN"
	RoleModerator  = "MODERATOR"
	RoleMentor     = "MENTOR"
	RoleRegistered = "REGISTERED"
)

// MergedUser is the single user record the rest of the gateway consumes. It
// combines the identity provider's profile fields with the platform
// backend's authoritative role data. Built by the identity refresher; nil
// while signed out or before the first merge resolves.
type MergedUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	// PrimaryRole is the backend's main role for the user. Falls back to the
	// provider's self-asserted role when the merge fetch fails.
	PrimaryRole string `json:"primary_role,omitempty"`

	// Roles is the backend's full role set. Empty when the merge fetch
	// failed; authorization then falls back to PrimaryRole alone.
	Roles []string `json:"roles,omitempty"`

	// MentorshipEligible mirrors the backend's mentorship flag.
	MentorshipEligible bool `json:"mentorship_eligible,omitempty"`
}
