package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/internal/gateway/domain"
)

func TestAuthorized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		roles       []string
		primaryRole string
		required    []string
		want        bool
	}{
		{
			name:     "empty requirement always passes",
			roles:    nil,
			required: nil,
			want:     true,
		},
		{
			name:     "empty requirement passes even without roles",
			roles:    []string{},
			required: []string{},
			want:     true,
		},
		{
			name:     "role set intersects requirement",
			roles:    []string{domain.RoleRegistered, domain.RoleModerator},
			required: []string{domain.RoleAdmin, domain.RoleModerator},
			want:     true,
		},
		{
			name:     "role set disjoint from requirement",
			roles:    []string{domain.RoleRegistered},
			required: []string{domain.RoleAdmin, domain.RoleModerator},
			want:     false,
		},
		{
			name:        "primary role matches requirement",
			roles:       nil,
			primaryRole: domain.RoleAdmin,
			required:    []string{domain.RoleAdmin},
			want:        true,
		},
		{
			name:        "primary role outside requirement",
			roles:       nil,
			primaryRole: domain.RoleRegistered,
			required:    []string{domain.RoleAdmin},
			want:        false,
		},
		{
			name:        "primary role covers when role set empty after failed merge",
			roles:       []string{},
			primaryRole: domain.RoleModerator,
			required:    []string{domain.RoleAdmin, domain.RoleModerator},
			want:        true,
		},
		{
			name:     "no roles and no primary role fails",
			roles:    nil,
			required: []string{domain.RoleRegistered},
			want:     false,
		},
		{
			name:        "empty primary role never matches",
			roles:       nil,
			primaryRole: "",
			required:    []string{""},
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := domain.Authorized(tt.roles, tt.primaryRole, tt.required)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestUserAuthorized(t *testing.T) {
	t.Parallel()

	t.Run("nil user fails non-empty requirement", func(t *testing.T) {
		t.Parallel()
		require.False(t, domain.UserAuthorized(nil, []string{domain.RoleAdmin}))
	})

	t.Run("nil user passes empty requirement", func(t *testing.T) {
		t.Parallel()
		require.True(t, domain.UserAuthorized(nil, nil))
	})

	t.Run("user roles consulted", func(t *testing.T) {
		t.Parallel()

		user := &domain.MergedUser{
			PrimaryRole: domain.RoleRegistered,
			Roles:       []string{domain.RoleRegistered, domain.RoleMentor},
		}
		require.True(t, domain.UserAuthorized(user, []string{domain.RoleMentor}))
		require.False(t, domain.UserAuthorized(user, []string{domain.RoleAdmin}))
	})
}
