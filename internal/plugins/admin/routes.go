package admin

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the admin area. The gate's policy marks these
// paths admin-only, so the guard also demands a fresh admin PIN grant.
func RegisterRoutes(e *echo.Echo, h *Handler, guard echo.MiddlewareFunc) {
	g := e.Group("/admin", guard)
	g.GET("", h.Dashboard)
	g.POST("/lock", h.Lock)
}
