package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/middleware"
	"github.com/kidstube/web/internal/plugins/admin"
	"github.com/kidstube/web/internal/plugins/auth"
	"github.com/kidstube/web/internal/plugins/gate"
	"github.com/kidstube/web/internal/plugins/pin"
	"github.com/kidstube/web/internal/plugins/preferences"
	"github.com/kidstube/web/internal/plugins/profiles"
	"github.com/kidstube/web/internal/plugins/tokenstore"
	"github.com/kidstube/web/internal/templates/layouts"
	"github.com/kidstube/web/internal/templates/pages"
)

// RegisterRoutes sets up all application routes. It registers public routes
// directly and delegates to each plugin's route registration function.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes() {
	e := a.Echo
	cfg := a.Config

	api := kidsapi.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)

	middleware.LayoutInjector = a.injectLayout

	// --- Public Routes (no auth required) ---

	e.GET("/", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Landing())
	})
	e.GET("/healthz", a.healthz)

	// --- Gate ---
	// Every guarded group shares one gate; public paths pass straight
	// through it, admin paths also need a fresh admin PIN grant.
	g := gate.NewGate(a.Store, a.Clock, gate.DefaultPolicy())
	guard := gate.Guard(g, a.Audit)
	gate.RegisterRoutes(e, gate.NewHandler(cfg.UI.RedirectDelay))

	// --- PIN challenges ---
	pinService := pin.NewPinService(a.Pins, a.Store, api, a.Clock, pin.Options{
		SubmitDelay:       cfg.PIN.SubmitDelay,
		LockoutCloseDelay: cfg.PIN.LockoutCloseDelay,
		VerifyTimeout:     cfg.PIN.VerifyTimeout,
	}, a.Audit)
	timing := pin.Timing{
		Poll:    cfg.PIN.SubmitDelay,
		Lockout: cfg.PIN.LockoutCloseDelay,
		Finish:  cfg.UI.AcceptedDelay,
	}
	pin.RegisterRoutes(e, pin.NewHandler(pinService, timing), guard)

	// --- Auth ---
	authService := auth.NewAuthService(api, a.Store, a.Clock)
	auth.RegisterRoutes(e, auth.NewHandler(authService, a.Store, pinService))

	// --- Profiles ---
	profileService := profiles.NewProfileService(api, a.Store)
	profiles.RegisterRoutes(e, profiles.NewHandler(profileService, pinService, timing), guard)

	// --- Admin ---
	admin.RegisterRoutes(e, admin.NewHandler(a.Store, profileService, a.Audit, a.Clock), guard)

	// --- Preferences ---
	preferences.RegisterRoutes(e, preferences.NewHandler(a.Store))
}

// injectLayout copies the browser's signed-in name, entered profile, and
// dark-mode preference into the render context.
func (a *App) injectLayout(c echo.Context, ctx context.Context) context.Context {
	sid := tokenstore.SessionID(c)

	if s, ok := a.Store.Session(ctx, sid); ok {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUserName(ctx, s.DisplayName)
		if p, ok := a.Store.ActiveProfile(ctx, sid); ok {
			ctx = layouts.SetProfileName(ctx, p.FullName)
		}
	}
	ctx = layouts.SetDarkMode(ctx, a.Store.DarkMode(ctx, sid))
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)
	return ctx
}

// healthz reports whether Redis (and MariaDB, when auditing is on) answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "redis": "ok"}
	code := http.StatusOK

	if err := a.Redis.Ping(ctx).Err(); err != nil {
		status["status"], status["redis"] = "degraded", "unreachable"
		code = http.StatusServiceUnavailable
	}
	if a.DB != nil {
		status["database"] = "ok"
		if err := a.DB.PingContext(ctx); err != nil {
			// The audit is optional; the site still works without it.
			status["status"], status["database"] = "degraded", "unreachable"
		}
	}
	return c.JSON(code, status)
}
