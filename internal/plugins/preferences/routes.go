package preferences

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up preference routes. They are public: a browser that
// never logged in may still prefer dark mode.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/preferences/dark-mode", h.DarkMode)
}
