package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/stridehq/stride/internal/gateway/domain"
	"github.com/stridehq/stride/internal/gateway/feed"
	"github.com/stridehq/stride/internal/gateway/identity"
	"github.com/stridehq/stride/internal/gateway/store"
	"github.com/stridehq/stride/pkg/httpx"
	"github.com/stridehq/stride/pkg/idp"
	"github.com/stridehq/stride/pkg/slogx"

	_ "github.com/stridehq/stride/api/gateway" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	IDP       *idp.Client
	Refresher *identity.Refresher
	Feeds     *feed.Feeds
	Store     store.Store
}

func NewRouter(
	buildVersion string,
	idpClient *idp.Client,
	refresher *identity.Refresher,
	feeds *feed.Feeds,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		IDP:          idpClient,
		Refresher:    refresher,
		Feeds:        feeds,
		Store:        st,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSession()
	r.registerAdmin()
	r.registerFeeds()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Stride Gateway API
//	@version		0.1.0
//	@description	Backend-for-frontend gateway for the Stride task-tracking community platform.
//	@description
//	@description	Owns the identity session, merges identity and backend role data into a single
//	@description	user record, gates role-protected routes, and polls the platform backend for
//	@description	notification and chat feeds.
//
//	@contact.name	Stride Platform Team
//	@contact.url	https://github.com/stridehq/stride
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{IDP: r.IDP, Logger: r.logger}

	// POST /auth/login - strict rate limit by IP to slow brute force
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/signup - strict rate limit by IP (public endpoint)
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/mfa - strict rate limit to slow TOTP guessing
	r.Mux.Handle("POST /v1/auth/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/logout - moderate rate limit
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/reset - strict rate limit by IP (sends email)
	r.Mux.Handle("POST /v1/auth/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	// The session and nav views are polled by the UI; lenient limits.
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(&SessionHandler{Refresher: r.Refresher},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/nav",
		httpx.Chain(&NavHandler{Refresher: r.Refresher},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	// The route gate enforces the role requirement; wrong-role lands on /.
	r.Mux.Handle("GET /v1/admin/overview",
		httpx.Chain(&AdminOverviewHandler{Feeds: r.Feeds},
			r.RouteGate(domain.RoleAdmin, domain.RoleModerator),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerFeeds() {
	h := &FeedHandler{Feeds: r.Feeds}

	// Feed endpoints require a signed-in session but no particular role.
	r.Mux.Handle("GET /v1/notifications/count",
		httpx.Chain(http.HandlerFunc(h.HandleNotificationCount),
			r.RouteGate(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/messages/{connectionID}",
		httpx.Chain(http.HandlerFunc(h.HandleMessages),
			r.RouteGate(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/messages/{connectionID}/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			r.RouteGate(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Store, r.Refresher),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
