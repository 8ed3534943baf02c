package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	csrfTokenLength = 32
	csrfCookieName  = "kidstube_csrf"
	csrfHeaderName  = "X-CSRF-Token"
	csrfFormField   = "csrf_token"
	csrfContextKey  = "csrf_token"
)

// CSRF returns middleware that implements the double-submit cookie pattern
// on every state-changing request, keypad presses included.
//
// The token lives in an HttpOnly cookie and is echoed into pages by the
// layout: plain forms carry it in a hidden csrf_token field, and the body's
// hx-headers attribute sends it as X-CSRF-Token on every HTMX request.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			// Every browser gets a token on first contact, so the first page it
			// renders already carries one.
			var cookieToken string
			if cookie, err := req.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
				cookieToken = cookie.Value
				c.Set(csrfContextKey, cookieToken)
			} else if err := RotateCSRFToken(c); err != nil {
				return err
			}

			// Safe methods are not checked. Handlers behind GET may open a
			// keypad but never store anything.
			if isSafeMethod(req.Method) {
				return next(c)
			}

			// A browser without the cookie cannot have a matching token.
			// HTMX sends the header; plain forms send the hidden field.
			submitted := req.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = req.FormValue(csrfFormField)
			}
			if cookieToken == "" || submitted == "" ||
				subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}

			return next(c)
		}
	}
}

// RotateCSRFToken issues a fresh token. Called whenever the signed-in
// identity changes, so a token planted before login is useless after it.
func RotateCSRFToken(c echo.Context) error {
	token, err := generateCSRFToken()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
	}

	// HttpOnly: pages carry the token, no script needs the cookie.
	// SameSite=Lax still sends it on top-level navigations.
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(csrfContextKey, token)
	return nil
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken retrieves the CSRF token from the Echo context.
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get(csrfContextKey).(string); ok {
		return token
	}
	return ""
}
