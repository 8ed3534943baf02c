package gate

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the notice page. It is on the public allow-list so
// a denied browser can always reach it.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/notice", h.Notice)
}
