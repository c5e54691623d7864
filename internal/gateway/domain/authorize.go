package domain

import "slices"

// Authorized decides whether a user with the given role set and primary role
// may access a resource requiring one of the required roles.
//
// An empty requirement always passes. Otherwise the check passes when any
// required role appears in roles, or when the primary role matches a
// required role. The primary-role clause keeps authorization working when
// the full role set is unavailable (merge fetch failed).
func Authorized(roles []string, primaryRole string, required []string) bool {
	if len(required) == 0 {
		return true
	}

	for _, want := range required {
		if slices.Contains(roles, want) {
			return true
		}
		if primaryRole != "" && primaryRole == want {
			return true
		}
	}

	return false
}

// UserAuthorized applies Authorized to a merged user. A nil user fails every
// non-empty requirement.
func UserAuthorized(user *MergedUser, required []string) bool {
	if user == nil {
		return len(required) == 0
	}
	return Authorized(user.Roles, user.PrimaryRole, required)
}
