// Package preferences holds per-browser display settings. Dark mode is the
// only one; it survives logout so a shared family device keeps its look.
package preferences

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// Handler handles preference changes.
type Handler struct {
	store tokenstore.Store
}

// NewHandler creates a new preferences handler.
func NewHandler(store tokenstore.Store) *Handler {
	return &Handler{store: store}
}

// DarkMode sets the dark-mode preference (POST /preferences/dark-mode).
// An explicit "dark" form value of true or false wins; without one the
// current setting is flipped.
func (h *Handler) DarkMode(c echo.Context) error {
	ctx := c.Request().Context()
	sid := tokenstore.SessionID(c)

	on := !h.store.DarkMode(ctx, sid)
	if v := c.FormValue("dark"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperror.NewBadRequest("dark must be true or false")
		}
		on = b
	}

	if err := h.store.SetDarkMode(ctx, sid, on); err != nil {
		return apperror.NewInternal(err)
	}

	// The whole page's class changes, so HTMX reloads rather than swaps.
	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Refresh", "true")
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, backTo(c.Request().Referer(), c.Request().Host))
}

// backTo returns the local path of a same-host referer, or "/".
func backTo(referer, host string) string {
	u, err := url.Parse(referer)
	if err != nil || referer == "" || u.Host != host || u.Path == "" || u.Path[0] != '/' {
		return "/"
	}
	return u.RequestURI()
}
