package profiles

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/middleware"
)

// opensPerMinute caps how many keypads one IP may open. Every open starts a
// fresh attempt counter, so this is what bounds PIN guessing overall.
const opensPerMinute = 6

// RegisterRoutes sets up profile selection and the child landing page,
// all behind the session gate.
func RegisterRoutes(e *echo.Echo, h *Handler, guard echo.MiddlewareFunc) {
	g := e.Group("", guard)

	// One limiter for every way of opening a keypad, including the
	// ?verify=admin shortcut on the grid.
	opens := middleware.RateLimit(opensPerMinute, time.Minute)

	g.GET("/profiles", h.Select, whenOpening(opens))
	g.POST("/profiles/admin/pin", h.OpenAdmin, opens)
	g.POST("/profiles/:id/pin", h.OpenProfile, opens)
	g.POST("/profiles/exit", h.Exit)
	g.GET("/kids", h.Kids)
}

// whenOpening applies mw only to grid loads that open the admin keypad.
func whenOpening(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		limited := mw(next)
		return func(c echo.Context) error {
			if c.QueryParam("verify") == "" {
				return next(c)
			}
			return limited(c)
		}
	}
}
