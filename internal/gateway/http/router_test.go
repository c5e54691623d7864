package http_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/internal/gateway/backend"
	"github.com/stridehq/stride/internal/gateway/domain"
	"github.com/stridehq/stride/internal/gateway/feed"
	gatewayhttp "github.com/stridehq/stride/internal/gateway/http"
	"github.com/stridehq/stride/internal/gateway/identity"
	"github.com/stridehq/stride/internal/gateway/store"
	"github.com/stridehq/stride/internal/gateway/store/drivers/sqlite"
	"github.com/stridehq/stride/pkg/httpx"
	"github.com/stridehq/stride/pkg/idp"
)

// TestMain relaxes the rate limit profiles so the polling assertions below
// cannot trip 429s. Limiters capture the profile when routes are applied,
// which happens after this runs.
func TestMain(m *testing.M) {
	relaxed := httpx.RateLimitConfig{
		RequestsPerWindow: 10000,
		Window:            time.Minute,
		Burst:             10000,
	}
	httpx.StrictLimit = relaxed
	httpx.ModerateLimit = relaxed
	httpx.LenientLimit = relaxed

	os.Exit(m.Run())
}

type fakeProfiles struct {
	profile *backend.Profile
	err     error
}

func (f *fakeProfiles) Me(ctx context.Context) (*backend.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fakeFeedSource struct {
	count    int
	messages map[string][]domain.Message
}

func (f *fakeFeedSource) NotificationCount(ctx context.Context) (int, error) {
	return f.count, nil
}

func (f *fakeFeedSource) Messages(ctx context.Context, connectionID string) ([]domain.Message, error) {
	return f.messages[connectionID], nil
}

func (f *fakeFeedSource) MessageStatus(ctx context.Context, connectionID string) ([]domain.MessageStatus, error) {
	return nil, nil
}

type harness struct {
	router *gatewayhttp.Router
	idp    *idp.Client
	store  store.Store
	feeds  *feed.Feeds
}

// newHarness wires a router against a fake identity provider. When session
// is non-nil it is restored and the refresher runs to resolution using the
// given profile (or profileErr).
func newHarness(t *testing.T, session *idp.Session, profile *backend.Profile, profileErr error) *harness {
	t.Helper()

	idpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		case "/v1/recover":
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(idpSrv.Close)

	idpClient := idp.NewClient(idpSrv.URL)
	if session != nil {
		idpClient.RestoreSession(session)
	}

	logger := slog.New(slog.DiscardHandler)

	refresher := identity.NewRefresher(idpClient, &fakeProfiles{profile: profile, err: profileErr}, logger)
	refresher.Start()
	t.Cleanup(refresher.Stop)

	require.Eventually(t, func() bool {
		_, loading := refresher.Snapshot()
		return !loading
	}, time.Second, 5*time.Millisecond)

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	feeds := feed.New(&fakeFeedSource{count: 2, messages: map[string][]domain.Message{
		"conn-1": {{ID: "msg-1", Content: "hey"}},
	}}, st, logger, feed.Config{
		NotificationInterval: 10 * time.Millisecond,
		MessageInterval:      10 * time.Millisecond,
		StatusInterval:       10 * time.Millisecond,
	})
	t.Cleanup(feeds.Stop)

	router := gatewayhttp.NewRouter("test", idpClient, refresher, feeds, st, logger)
	router.ApplyRoutes()

	return &harness{router: router, idp: idpClient, store: st, feeds: feeds}
}

func (h *harness) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:12345"
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func adminSession() *idp.Session {
	return &idp.Session{
		AccessToken: "access-1",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User: idp.IdentityUser{
			ID:    "user-1",
			Email: "alex@example.com",
			Metadata: idp.UserMetadata{
				FirstName: "Alex",
				Role:      domain.RoleRegistered,
			},
		},
	}
}

func adminProfile() *backend.Profile {
	return &backend.Profile{
		ID:          "user-1",
		Email:       "alex@example.com",
		PrimaryRole: domain.RoleAdmin,
		Roles:       []string{domain.RoleRegistered, domain.RoleAdmin},
	}
}

func registeredProfile() *backend.Profile {
	return &backend.Profile{
		ID:          "user-1",
		Email:       "alex@example.com",
		PrimaryRole: domain.RoleRegistered,
		Roles:       []string{domain.RoleRegistered},
	}
}

func TestGateRedirectsSignedOutToLogin(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil, nil)

	rec := h.get(t, "/v1/admin/overview")
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/login", location.Path)
	require.Equal(t, "/v1/admin/overview", location.Query().Get("from"))
}

func TestGateRedirectsWrongRoleToRoot(t *testing.T) {
	t.Parallel()

	h := newHarness(t, adminSession(), registeredProfile(), nil)

	rec := h.get(t, "/v1/admin/overview")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func TestGateAdmitsAuthorizedRole(t *testing.T) {
	t.Parallel()

	h := newHarness(t, adminSession(), adminProfile(), nil)

	rec := h.get(t, "/v1/admin/overview")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gatewayhttp.AdminOverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	require.Equal(t, "alex@example.com", resp.User.Email)
}

func TestGateSignsOutExpiredSession(t *testing.T) {
	t.Parallel()

	session := adminSession()
	session.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	h := newHarness(t, session, adminProfile(), nil)

	rec := h.get(t, "/v1/admin/overview")
	require.Equal(t, http.StatusFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/auth/login"))

	// The expired session is gone, not just rejected.
	require.Nil(t, h.idp.CurrentSession())
}

func TestGateRespondsServiceUnavailableWhileLoading(t *testing.T) {
	t.Parallel()

	idpClient := idp.NewClient("http://127.0.0.1:0")
	logger := slog.New(slog.DiscardHandler)

	// Not started: the first resolution never lands.
	refresher := identity.NewRefresher(idpClient, &fakeProfiles{}, logger)

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	feeds := feed.New(&fakeFeedSource{}, st, logger, feed.Config{
		NotificationInterval: time.Hour,
		MessageInterval:      time.Hour,
		StatusInterval:       time.Hour,
	})

	router := gatewayhttp.NewRouter("test", idpClient, refresher, feeds, st, logger)
	router.ApplyRoutes()

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/overview", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Empty(t, rec.Header().Get("Location"), "loading must not redirect")
}

func TestSessionEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("signed out", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, nil, nil, nil)

		rec := h.get(t, "/v1/session")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp gatewayhttp.SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Nil(t, resp.User)
		require.False(t, resp.Loading)
	})

	t.Run("signed in", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, adminSession(), adminProfile(), nil)

		rec := h.get(t, "/v1/session")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp gatewayhttp.SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.User)
		require.Equal(t, domain.RoleAdmin, resp.User.PrimaryRole)
	})

	t.Run("merge failure falls back without roles", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, adminSession(), nil, &backend.APIError{StatusCode: 500, Code: "server_error"})

		rec := h.get(t, "/v1/session")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp gatewayhttp.SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.User)
		require.Empty(t, resp.User.Roles)
		require.False(t, resp.Loading)
	})
}

func TestNavSilentGate(t *testing.T) {
	t.Parallel()

	t.Run("signed out sees nothing", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, nil, nil, nil)

		rec := h.get(t, "/v1/nav")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp gatewayhttp.NavResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Empty(t, resp.Entries)
	})

	t.Run("registered sees unrestricted entries only", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, adminSession(), registeredProfile(), nil)

		rec := h.get(t, "/v1/nav")
		var resp gatewayhttp.NavResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		for _, entry := range resp.Entries {
			require.NotEqual(t, "/admin", entry.Path)
			require.NotEqual(t, "/moderation", entry.Path)
		}
		require.Len(t, resp.Entries, 3)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, adminSession(), adminProfile(), nil)

		rec := h.get(t, "/v1/nav")
		var resp gatewayhttp.NavResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Entries, len(domain.DefaultNav))
	})
}

func TestFeedEndpoints(t *testing.T) {
	t.Parallel()

	h := newHarness(t, adminSession(), adminProfile(), nil)
	h.feeds.Start()

	require.Eventually(t, func() bool {
		rec := h.get(t, "/v1/notifications/count")
		if rec.Code != http.StatusOK {
			return false
		}
		var resp gatewayhttp.CountResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			return false
		}
		return resp.Count == 2
	}, time.Second, 10*time.Millisecond)

	// First request to a connection is a view switch.
	require.Eventually(t, func() bool {
		rec := h.get(t, "/v1/messages/conn-1")
		if rec.Code != http.StatusOK {
			return false
		}
		var resp gatewayhttp.MessagesResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			return false
		}
		return len(resp.Messages) == 1
	}, time.Second, 10*time.Millisecond)

	rec := h.get(t, "/v1/messages/conn-1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var statusResp gatewayhttp.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statusResp))
	require.Len(t, statusResp.Statuses, 1)
	require.Equal(t, "msg-1", statusResp.Statuses[0].ID)
}

func TestAuthEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("login bad request", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, nil, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{}`))
		req.RemoteAddr = "192.0.2.2:12345"
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("logout clears session", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, adminSession(), adminProfile(), nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
		req.RemoteAddr = "192.0.2.3:12345"
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Nil(t, h.idp.CurrentSession())
	})

	t.Run("reset accepted", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, nil, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/auth/reset", strings.NewReader(`{"email":"alex@example.com"}`))
		req.RemoteAddr = "192.0.2.4:12345"
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)
	})
}

func TestLivez(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil, nil)

	rec := h.get(t, "/livez")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gatewayhttp.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "test", resp.Version)
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil, nil)

	rec := h.get(t, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gatewayhttp.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Checks)
	require.Equal(t, "ok", resp.Checks.Database)
}
