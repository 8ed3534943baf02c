package profiles

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/middleware"
	"github.com/kidstube/web/internal/plugins/gate"
	"github.com/kidstube/web/internal/plugins/pin"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// Handler handles profile selection and the child landing page.
type Handler struct {
	service ProfileService
	pins    pin.PinService
	timing  pin.Timing
}

// NewHandler creates a new profiles handler.
func NewHandler(service ProfileService, pins pin.PinService, timing pin.Timing) *Handler {
	return &Handler{service: service, pins: pins, timing: timing}
}

// Select renders the profile grid (GET /profiles). With ?verify=admin the
// admin keypad opens straight away.
func (h *Handler) Select(c echo.Context) error {
	ctx := c.Request().Context()
	sid := tokenstore.SessionID(c)

	profiles, err := h.service.List(ctx, sid)
	if err != nil {
		return err
	}

	snap := h.pins.Snapshot(sid)
	if c.QueryParam("verify") == string(pin.PurposeAdmin) && !snap.Open() {
		snap, err = h.pins.OpenAdmin(ctx, sid, requestMeta(c))
		if err != nil {
			return err
		}
	}

	return middleware.Render(c, http.StatusOK, selectPage(profiles, pin.Modal(snap, h.timing), h.timing.Fallback(snap)))
}

// OpenProfile opens the keypad for one profile (POST /profiles/:id/pin).
func (h *Handler) OpenProfile(c echo.Context) error {
	ctx := c.Request().Context()
	sid := tokenstore.SessionID(c)

	p, err := h.service.Find(ctx, sid, c.Param("id"))
	if err != nil {
		return err
	}
	snap := h.pins.OpenProfile(ctx, sid, requestMeta(c), p)
	return h.respond(c, snap)
}

// OpenAdmin opens the admin keypad (POST /profiles/admin/pin).
func (h *Handler) OpenAdmin(c echo.Context) error {
	snap, err := h.pins.OpenAdmin(c.Request().Context(), tokenstore.SessionID(c), requestMeta(c))
	if err != nil {
		return err
	}
	return h.respond(c, snap)
}

// Exit leaves the child profile (POST /profiles/exit).
func (h *Handler) Exit(c echo.Context) error {
	if err := h.service.Exit(c.Request().Context(), tokenstore.SessionID(c)); err != nil {
		return err
	}
	return middleware.Redirect(c, "/profiles")
}

// Kids is the child landing page (GET /kids). Without an entered profile
// it sends the browser to profile selection.
func (h *Handler) Kids(c echo.Context) error {
	p, ok := h.service.Active(c.Request().Context(), tokenstore.SessionID(c))
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/profiles")
	}
	return middleware.Render(c, http.StatusOK, kidsPage(p))
}

func (h *Handler) respond(c echo.Context, snap pin.Snapshot) error {
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, pin.Modal(snap, h.timing))
	}
	return c.Redirect(http.StatusSeeOther, "/profiles")
}

func requestMeta(c echo.Context) pin.RequestMeta {
	meta := pin.RequestMeta{RemoteIP: c.RealIP()}
	if claims := gate.GetClaims(c); claims != nil {
		meta.AdminID = claims.ID
	}
	return meta
}
