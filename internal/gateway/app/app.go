package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stridehq/stride/internal/gateway/backend"
	"github.com/stridehq/stride/internal/gateway/feed"
	gatewayhttp "github.com/stridehq/stride/internal/gateway/http"
	"github.com/stridehq/stride/internal/gateway/identity"
	"github.com/stridehq/stride/internal/gateway/service"
	"github.com/stridehq/stride/internal/gateway/store"
	"github.com/stridehq/stride/internal/gateway/store/drivers/sqlite"
	"github.com/stridehq/stride/pkg/idp"
	"github.com/stridehq/stride/pkg/slogx"
	"github.com/stridehq/stride/pkg/tokencache"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the gateway with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db           store.Store
	sessionCache *tokencache.Cache
	idp          *idp.Client
	backend      *backend.Client

	// Services
	refresher           *identity.Refresher
	feeds               *feed.Feeds
	housekeepingService *service.HousekeepingService

	// Session persistence
	unsubscribe func()

	// HTTP server
	server *http.Server
	router *gatewayhttp.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.IdentityURL == "" {
		return nil, errors.New("STRIDE_IDENTITY_URL is required")
	}
	if cfg.BackendURL == "" {
		return nil, errors.New("STRIDE_BACKEND_URL is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initIdentity(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.refresher.Start()
	app.feeds.Start()
	app.housekeepingService.Start()

	app.logger.Info("gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGrace)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop background workers before closing their stores
	app.housekeepingService.Stop()
	app.feeds.Stop()
	app.refresher.Stop()
	app.unsubscribe()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gateway stopped")
	return nil
}

// initDatabase initializes the cache database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initIdentity builds the identity client, restores any cached session, and
// keeps the cache in sync with auth state changes.
func (app *Application) initIdentity() error {
	key, err := tokencache.KeyFromEnv(app.cfg.CacheKeyFile)
	if err != nil {
		return fmt.Errorf("failed to load session cache key: %w", err)
	}

	cache, err := tokencache.Open(app.cfg.SessionCacheFile, key)
	if err != nil {
		return fmt.Errorf("failed to open session cache: %w", err)
	}
	app.sessionCache = cache

	app.idp = idp.NewClient(app.cfg.IdentityURL)

	if data, err := cache.Load(); err == nil {
		var session idp.Session
		if err := json.Unmarshal(data, &session); err == nil {
			app.idp.RestoreSession(&session)
			app.logger.Info("restored cached session", "user_id", session.User.ID)
		} else {
			app.logger.Warn("discarding unreadable session cache", "error", err)
			_ = cache.Clear()
		}
	} else if !errors.Is(err, tokencache.ErrNoCache) {
		app.logger.Warn("failed to load session cache", "error", err)
	}

	app.unsubscribe = app.idp.OnAuthStateChange(func(event idp.AuthEvent, session *idp.Session) {
		app.persistSession(event, session)
	})

	return nil
}

// persistSession mirrors the in-memory session into the encrypted cache.
func (app *Application) persistSession(event idp.AuthEvent, session *idp.Session) {
	if event == idp.EventSignedOut || session == nil {
		if err := app.sessionCache.Clear(); err != nil {
			app.logger.Warn("failed to clear session cache", "error", err)
		}
		return
	}

	data, err := json.Marshal(session)
	if err != nil {
		app.logger.Warn("failed to encode session for cache", "error", err)
		return
	}
	if err := app.sessionCache.Save(data); err != nil {
		app.logger.Warn("failed to persist session cache", "error", err)
	}
}

// initServices initializes the backend client and background services
func (app *Application) initServices() {
	app.backend = backend.NewClient(app.cfg.BackendURL, app.idp)

	app.refresher = identity.NewRefresher(app.idp, app.backend, app.logger)

	app.feeds = feed.New(app.backend, app.db, app.logger, feed.Config{
		NotificationInterval: app.cfg.NotificationInterval,
		MessageInterval:      app.cfg.MessageInterval,
		StatusInterval:       app.cfg.StatusInterval,
	})

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.ConversationTTL,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := gatewayhttp.NewRouter(
		BuildVersion,
		app.idp,
		app.refresher,
		app.feeds,
		app.db,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
