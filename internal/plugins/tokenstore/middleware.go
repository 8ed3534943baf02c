package tokenstore

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CookieName holds the opaque browser-session id. It never carries a
// credential; everything sensitive stays server side.
const CookieName = "kidstube_sid"

const (
	contextKeySID    = "tokenstore_sid"
	contextKeyMaxAge = "tokenstore_max_age"
)

// BrowserSession returns middleware that makes sure every request has a
// browser-session id, issuing a fresh cookie when the browser has none (or
// sends one that is not a uuid).
func BrowserSession(maxAge int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := readCookie(c)
			if sid == "" {
				sid = uuid.NewString()
				setCookie(c, sid, maxAge)
			}
			c.Set(contextKeySID, sid)
			c.Set(contextKeyMaxAge, maxAge)
			return next(c)
		}
	}
}

// SessionID returns the browser-session id injected by BrowserSession, or
// "" when the middleware is not installed.
func SessionID(c echo.Context) string {
	sid, _ := c.Get(contextKeySID).(string)
	return sid
}

// Adopt switches the request to sid and sends it to the browser. Used after
// Store.Rotate; later handlers in the same request see the new id.
func Adopt(c echo.Context, sid string) {
	maxAge, _ := c.Get(contextKeyMaxAge).(int)
	setCookie(c, sid, maxAge)
	c.Set(contextKeySID, sid)
}

func readCookie(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// setCookie is HttpOnly, Secure behind TLS, and SameSite=Lax.
func setCookie(c echo.Context, sid string, maxAge int) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
