package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders returns middleware that sets security-related HTTP headers
// on every response.
//
// KidsTube runs behind a reverse proxy that terminates TLS. These headers
// are the application's own layer on top of that.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			// Content-Security-Policy: same-origin scripts and styles only.
			// 'unsafe-inline' covers the hx-* attributes and the small
			// inline styles on the keypad. Profile avatars are remote https
			// images picked by the backend, hence img-src https:. The child
			// view embeds YouTube players, so frame-src names both hosts.
			h.Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self' 'unsafe-inline'; "+
					"style-src 'self' 'unsafe-inline'; "+
					"img-src 'self' data: https:; "+
					"frame-src https://www.youtube-nocookie.com https://www.youtube.com; "+
					"connect-src 'self'; "+
					"frame-ancestors 'none'; "+
					"base-uri 'self'; "+
					"form-action 'self'",
			)

			// Strict-Transport-Security: the proxy serves HTTPS only; tell
			// browsers to never try plain HTTP again.
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			// X-Content-Type-Options: no MIME sniffing.
			h.Set("X-Content-Type-Options", "nosniff")

			// X-Frame-Options: the keypad must not be framed and clickjacked.
			// Same as frame-ancestors, for browsers that ignore CSP.
			h.Set("X-Frame-Options", "DENY")

			// Referrer-Policy: page paths never leave the site. The dark-mode
			// toggle still needs same-origin referers to return the browser.
			h.Set("Referrer-Policy", "same-origin")

			// Permissions-Policy: nothing here uses these.
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

			// Gated pages must never come back from the browser cache after
			// logout or when the admin-PIN grant lapses.
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
