// Package middleware provides HTTP middleware for the KidsTube Echo server.
// Global middleware is registered in internal/app/app.go; per-route
// middleware (rate limits) in each plugin's routes.go.
package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns middleware that logs every request with method,
// path, status, latency, remote IP, and whether HTMX issued it. Keypad
// presses are logged at debug level; they are frequent and carry no
// information beyond their status.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				// Let the error handler write the response now so the
				// logged status is the one the browser sees.
				c.Error(err)
			}

			latency := time.Since(start)
			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", latency),
				slog.String("remote_ip", c.RealIP()),
			}

			if req.Header.Get("HX-Request") == "true" {
				attrs = append(attrs, slog.Bool("htmx", true))
			}

			level := slog.LevelInfo
			if strings.HasPrefix(req.URL.Path, "/pin/") {
				level = slog.LevelDebug
			}
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)
			return nil
		}
	}
}
