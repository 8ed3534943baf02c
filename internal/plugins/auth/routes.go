package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// Auth routes are public; the session gate lists them as such.
//
// POST endpoints are rate-limited to slow credential stuffing: 10 attempts
// per IP per minute for login, 5 for register.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.GET("/register", h.RegisterForm)
	e.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))

	e.POST("/logout", h.Logout)
}
