package http

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/stridehq/stride/internal/gateway/domain"
	"github.com/stridehq/stride/pkg/httpx"
	"github.com/stridehq/stride/pkg/slogx"
)

const loginPath = "/auth/login"

// RouteGate protects a route tree with the authorization gate. Outcomes, in
// order:
//
//   - first session resolution still pending: 503 with Retry-After, so the
//     client retries instead of bouncing to the login page;
//   - signed out: 302 to the login page, preserving the requested path in
//     the "from" query parameter;
//   - token expired (strictly expires_at < now; equality still passes):
//     sign out, then the login redirect;
//   - signed in but missing every required role: 302 to the root, which
//     distinguishes wrong-role from unauthenticated;
//   - otherwise the merged user is injected into the request context and
//     the handler runs.
func (rt *Router) RouteGate(required ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			user, loading := rt.Refresher.Snapshot()
			if loading {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "session_loading", "session is still resolving, retry shortly")
				return
			}

			session := rt.IDP.CurrentSession()
			if session == nil || user == nil {
				redirectToLogin(w, r)
				return
			}

			if session.Expired(time.Now()) {
				log.Info("session expired, signing out", "user_id", user.ID)
				if err := rt.IDP.SignOut(ctx); err != nil {
					log.Warn("sign-out after expiry failed", "error", err)
				}
				redirectToLogin(w, r)
				return
			}

			if !domain.UserAuthorized(user, required) {
				log.Info("role check failed",
					"user_id", user.ID,
					"roles", user.Roles,
					"required", required,
				)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, httpx.CtxKeyUser, user)))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := loginPath + "?from=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusFound)
}

// userFromContext returns the merged user the route gate injected.
func userFromContext(ctx context.Context) *domain.MergedUser {
	user, _ := ctx.Value(httpx.CtxKeyUser).(*domain.MergedUser)
	return user
}
