package pin

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/middleware"
)

// RegisterRoutes sets up the keypad routes. They sit behind the session
// gate and a per-IP rate limit sized for tapping digits; opening a keypad
// has its own, much tighter limit on the profile routes.
func RegisterRoutes(e *echo.Echo, h *Handler, guard echo.MiddlewareFunc) {
	g := e.Group("/pin", guard, middleware.RateLimit(120, time.Minute))

	g.POST("/digit", h.Digit)
	g.POST("/delete", h.Delete)
	g.POST("/clear", h.Clear)
	g.POST("/submit", h.Submit)
	g.POST("/close", h.Close)
	g.GET("/status", h.Status)
	g.GET("/finish", h.Finish)
}
