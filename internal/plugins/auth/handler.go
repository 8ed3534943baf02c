package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/middleware"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// ChallengeCloser closes any PIN challenge the browser has open. Logging
// out must not leave a keypad behind for the next person.
type ChallengeCloser interface {
	Close(sid string)
}

// Handler handles HTTP requests for authentication (login, register, logout).
// Handlers are thin: they bind the request, call the service, and render the
// response. No business logic lives here.
type Handler struct {
	service AuthService
	store   tokenstore.Store
	pins    ChallengeCloser
}

// NewHandler creates a new auth handler.
func NewHandler(service AuthService, store tokenstore.Store, pins ChallengeCloser) *Handler {
	return &Handler{service: service, store: store, pins: pins}
}

// LoginForm renders the login page (GET /login).
func (h *Handler) LoginForm(c echo.Context) error {
	if h.signedIn(c) {
		return c.Redirect(http.StatusSeeOther, defaultLanding)
	}
	return middleware.Render(c, http.StatusOK, loginPage(LoginRequest{}, ""))
}

// Login processes the login form submission (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	sid := tokenstore.SessionID(c)
	res, err := h.service.Login(c.Request().Context(), sid, LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		// Never echo the password back into the form.
		req.Password = ""
		if middleware.IsHTMX(c) {
			return middleware.Render(c, http.StatusOK, loginForm(req, apperror.SafeMessage(err)))
		}
		return middleware.Render(c, http.StatusOK, loginPage(req, apperror.SafeMessage(err)))
	}
	return h.signIn(c, sid, res)
}

// RegisterForm renders the registration page (GET /register).
func (h *Handler) RegisterForm(c echo.Context) error {
	if h.signedIn(c) {
		return c.Redirect(http.StatusSeeOther, defaultLanding)
	}
	return middleware.Render(c, http.StatusOK, registerPage(RegisterRequest{}, ""))
}

// Register processes the registration form submission (POST /register).
// A successful registration signs the new administrator in.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	sid := tokenstore.SessionID(c)
	res, err := h.service.Register(c.Request().Context(), sid, req)
	if err != nil {
		// Registration succeeded but auto-login failed -- send them to login.
		if apperror.IsCode(err, http.StatusUnauthorized) {
			return middleware.Redirect(c, "/login")
		}
		req.Password, req.Confirm, req.PIN = "", "", ""
		if middleware.IsHTMX(c) {
			return middleware.Render(c, http.StatusOK, registerForm(req, apperror.SafeMessage(err)))
		}
		return middleware.Render(c, http.StatusOK, registerPage(req, apperror.SafeMessage(err)))
	}
	return h.signIn(c, sid, res)
}

// signIn moves the browser onto the session id the login was saved under.
// The retired id's keypad, if any, is closed and the CSRF token replaced.
func (h *Handler) signIn(c echo.Context, oldSID string, res LoginResult) error {
	h.pins.Close(oldSID)
	tokenstore.Adopt(c, res.SessionID)
	if err := middleware.RotateCSRFToken(c); err != nil {
		return err
	}
	return middleware.Redirect(c, res.Next)
}

// Logout ends the session (POST /logout). Stored state is cleared even if
// the backend could not be told.
func (h *Handler) Logout(c echo.Context) error {
	sid := tokenstore.SessionID(c)
	h.pins.Close(sid)

	if err := h.service.Logout(c.Request().Context(), sid); err != nil {
		return err
	}
	if err := middleware.RotateCSRFToken(c); err != nil {
		return err
	}
	return middleware.Redirect(c, "/login")
}

// signedIn reports whether this browser already holds a token. Expiry is
// the gate's business; an expired token here just means one extra hop.
func (h *Handler) signedIn(c echo.Context) bool {
	return h.store.IsPresent(c.Request().Context(), tokenstore.SessionID(c), tokenstore.KeyToken)
}
