package gateway_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/internal/gateway/domain"
	gatewayhttp "github.com/stridehq/stride/internal/gateway/http"
)

func TestGateRedirectsAnonymousToLogin(t *testing.T) {
	t.Parallel()

	g := setupGateway(t)

	resp := g.get(t, "/v1/admin/overview")
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/login", location.Path)
	require.Equal(t, "/v1/admin/overview", location.Query().Get("from"))
}

func TestGateRejectsInsufficientRole(t *testing.T) {
	t.Parallel()

	g := setupGateway(t)
	g.registerStandardUser(t, domain.RoleRegistered, domain.RoleRegistered)
	g.login(t)

	resp := g.get(t, "/v1/admin/overview")
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func TestGateAdmitsAdmin(t *testing.T) {
	t.Parallel()

	g := setupGateway(t)
	g.registerStandardUser(t, domain.RoleAdmin, domain.RoleRegistered, domain.RoleAdmin)
	g.login(t)

	resp := g.get(t, "/v1/admin/overview")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var overview gatewayhttp.AdminOverviewResponse
	decode(t, resp, &overview)
	require.NotNil(t, overview.User)
	require.Equal(t, domain.RoleAdmin, overview.User.PrimaryRole)
}

func TestGateSignsOutExpiredSession(t *testing.T) {
	t.Parallel()

	g := setupGateway(t)
	g.registerStandardUser(t, domain.RoleAdmin, domain.RoleAdmin)

	// Every issued token is already expired. The identity client's refresh
	// keeps backend calls working, but the gate judges the stored session.
	g.idp.mu.Lock()
	g.idp.tokenTTL = -time.Minute
	g.idp.mu.Unlock()

	g.login(t)

	resp := g.get(t, "/v1/admin/overview")
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/login", location.Path)

	// The sign-out is real, not just a redirect.
	require.Eventually(t, func() bool {
		var session gatewayhttp.SessionResponse
		decode(t, g.get(t, "/v1/session"), &session)
		return session.User == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNavEntriesFollowRoles(t *testing.T) {
	t.Parallel()

	g := setupGateway(t)

	// Signed out: the nav gate is silent, no redirect, no entries.
	resp := g.get(t, "/v1/nav")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var nav gatewayhttp.NavResponse
	decode(t, resp, &nav)
	require.Empty(t, nav.Entries)

	g.registerStandardUser(t, domain.RoleModerator, domain.RoleRegistered, domain.RoleModerator)
	g.login(t)

	decode(t, g.get(t, "/v1/nav"), &nav)

	paths := make([]string, 0, len(nav.Entries))
	for _, entry := range nav.Entries {
		paths = append(paths, entry.Path)
	}
	require.Contains(t, paths, "/moderation")
	require.NotContains(t, paths, "/admin")
}
