package pin

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/middleware"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// Handler handles keypad requests. Every action answers with the keypad
// fragment for HTMX, or sends a plain browser back to profile selection,
// which renders the same keypad.
type Handler struct {
	service PinService
	timing  Timing
}

// NewHandler creates a new keypad handler.
func NewHandler(service PinService, timing Timing) *Handler {
	return &Handler{service: service, timing: timing}
}

// Digit appends one digit (POST /pin/digit, form field "d").
func (h *Handler) Digit(c echo.Context) error {
	d := c.FormValue("d")
	if len(d) != 1 {
		return apperror.NewBadRequest("exactly one digit is expected")
	}
	return h.act(c, func(ch *Challenge) error {
		if err := ch.Append(rune(d[0])); errors.Is(err, ErrInvalidDigit) {
			return apperror.NewBadRequest("only digits are accepted")
		}
		return nil
	})
}

// Delete removes the last digit (POST /pin/delete).
func (h *Handler) Delete(c echo.Context) error {
	return h.act(c, func(ch *Challenge) error { ch.Delete(); return nil })
}

// Clear removes every digit (POST /pin/clear).
func (h *Handler) Clear(c echo.Context) error {
	return h.act(c, func(ch *Challenge) error { ch.Clear(); return nil })
}

// Submit verifies a partial code now (POST /pin/submit).
func (h *Handler) Submit(c echo.Context) error {
	return h.act(c, func(ch *Challenge) error { ch.Submit(); return nil })
}

// Close dismisses the keypad (POST /pin/close).
func (h *Handler) Close(c echo.Context) error {
	h.service.Close(tokenstore.SessionID(c))
	return h.respond(c, Snapshot{State: StateIdle})
}

// Status renders the current keypad (GET /pin/status). Polled while a
// verification is in flight or the keypad is locked.
func (h *Handler) Status(c echo.Context) error {
	return h.respond(c, h.service.Snapshot(tokenstore.SessionID(c)))
}

// Finish navigates to what a resolved challenge unlocked (GET /pin/finish).
func (h *Handler) Finish(c echo.Context) error {
	dest, ok := h.service.Finish(tokenstore.SessionID(c))
	if !ok {
		return middleware.Redirect(c, "/profiles")
	}
	return middleware.Redirect(c, dest)
}

func (h *Handler) act(c echo.Context, fn func(*Challenge) error) error {
	sid := tokenstore.SessionID(c)
	ch, ok := h.service.Challenge(sid)
	if !ok {
		return h.respond(c, Snapshot{State: StateIdle})
	}
	if err := fn(ch); err != nil {
		return err
	}
	return h.respond(c, ch.Snapshot())
}

func (h *Handler) respond(c echo.Context, snap Snapshot) error {
	if middleware.IsHTMX(c) {
		return middleware.Render(c, http.StatusOK, Modal(snap, h.timing))
	}
	return c.Redirect(http.StatusSeeOther, "/profiles")
}
