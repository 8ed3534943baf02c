package gate

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/middleware"
)

// Handler serves the notice interstitial.
type Handler struct {
	redirectDelay time.Duration
}

// NewHandler creates a notice handler that forwards after redirectDelay.
func NewHandler(redirectDelay time.Duration) *Handler {
	return &Handler{redirectDelay: redirectDelay}
}

// Notice renders the message for ?reason= and forwards to its destination
// (GET /notice). Unknown reasons go home.
func (h *Handler) Notice(c echo.Context) error {
	r, ok := ParseReason(c.QueryParam("reason"))
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return middleware.Render(c, http.StatusOK, noticePage(r, h.redirectDelay))
}
