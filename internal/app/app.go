// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (token store, PIN
// registry, audit service, Echo instance) and wires together all plugins.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/clock"
	"github.com/kidstube/web/internal/config"
	"github.com/kidstube/web/internal/middleware"
	"github.com/kidstube/web/internal/plugins/audit"
	"github.com/kidstube/web/internal/plugins/gate"
	"github.com/kidstube/web/internal/plugins/pin"
	"github.com/kidstube/web/internal/plugins/tokenstore"
	"github.com/kidstube/web/internal/templates/pages"
)

// pruneInterval is how often idle PIN challenges are swept.
const pruneInterval = time.Minute

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB pool for the access audit. Nil when auditing is off.
	DB *sql.DB

	// Redis backs the token store.
	Redis *redis.Client

	// Clock drives every timer: PIN delays, grant freshness, token expiry.
	Clock clock.Clock

	// Store is the per-browser token store.
	Store *tokenstore.RedisStore

	// Pins holds the open PIN challenge of each browser.
	Pins *pin.Registry

	// Audit records gate denials and PIN outcomes.
	Audit audit.AuditService

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client, auditSvc audit.AuditService) (*App, error) {
	store, err := tokenstore.NewRedisStore(rdb, cfg.Auth.SecretKey, cfg.Auth.StoreTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token store: %w", err)
	}

	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. Rate limits and the access audit
	// both key on it.
	middleware.TrustedProxies(e, cfg.TrustedProxies)

	clk := clock.Real()
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Clock:  clk,
		Store:  store,
		Pins:   pin.NewRegistry(clk, cfg.PIN.ChallengeIdle),
		Audit:  auditSvc,
		Echo:   e,
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to HTTP responses.
	e.HTTPErrorHandler = app.errorHandler

	// Serve static files (CSS, vendored htmx).
	e.Static("/static", "static")

	return app, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs last.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers -- CSP, X-Frame-Options, X-Content-Type-Options, etc.
	a.Echo.Use(middleware.SecurityHeaders())

	// Browser session id -- every later layer keys its state on it. Login
	// replaces it (tokenstore.Adopt) so a pre-login id never authenticates.
	a.Echo.Use(tokenstore.BrowserSession(int(a.Config.Auth.StoreTTL.Seconds())))

	// CSRF -- double-submit cookie pattern on all state-changing requests.
	a.Echo.Use(middleware.CSRF())
}

// RunBackground starts the housekeeping goroutines. They stop with ctx.
func (a *App) RunBackground(ctx context.Context) {
	go a.Pins.Run(ctx, pruneInterval)
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to appropriate HTTP responses and renders the error page.
//
// For HTMX partial requests that hit errors, we set HX-Retarget and
// HX-Reswap headers so the error page replaces the full body instead of
// being swapped into the keypad.
//
// 401 errors never render here. They go through the gate's notice page so
// the browser is told why before it lands on the login form: a token the
// backend refused reads as an invalid session, anything else as "please
// log in".
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		// Echo's own errors: 404 from the router, 403 from CSRF, 429.
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if code == http.StatusUnauthorized {
		reason := gate.ReasonLoginRequired
		if apperror.IsSessionRejected(err) {
			reason = gate.ReasonInvalidToken
		}
		if err := middleware.Redirect(c, gate.NoticeURL(reason)); err != nil {
			slog.Error("redirecting to login", slog.Any("error", err))
		}
		return
	}

	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Retarget", "body")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
	}

	// HEAD requests (uptime checks) get the status and no body.
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if err := middleware.Render(c, code, pages.ErrorPage(code, message)); err != nil {
		slog.Error("rendering error page", slog.Any("error", err))
	}
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusForbidden:
		return "You don't have permission to do that."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist or has been moved."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusBadGateway:
		return "The KidsTube service is not responding. Please try again."
	default:
		return "Something went wrong on our end. Please try again."
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting KidsTube web server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
