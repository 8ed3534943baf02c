package gate

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/bearer"
	"github.com/kidstube/web/internal/middleware"
	"github.com/kidstube/web/internal/plugins/audit"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

const contextKeyClaims = "gate_claims"

// Guard returns middleware that evaluates every request before its handler.
// On denial the handler is never called: the failure is audited and the
// browser is sent to the notice page.
func Guard(g *Gate, rec audit.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()
			sid := tokenstore.SessionID(c)

			// Only full-page GETs are worth returning to.
			var returnTo string
			if req.Method == http.MethodGet && !middleware.IsHTMX(c) {
				returnTo = req.URL.RequestURI()
			}

			d := g.Evaluate(ctx, sid, req.URL.Path, returnTo)
			if !d.Allowed {
				entry := audit.Entry{
					Action:   audit.ActionGateDenied,
					Reason:   string(d.Reason),
					Path:     req.URL.Path,
					RemoteIP: c.RealIP(),
				}
				if d.Claims != nil {
					entry.AdminID = d.Claims.ID
				}
				rec.Record(ctx, entry)

				return middleware.Redirect(c, NoticeURL(d.Reason))
			}

			if d.Claims != nil {
				c.Set(contextKeyClaims, d.Claims)
			}
			return next(c)
		}
	}
}

// GetClaims returns the token claims of an allowed, non-public request, or
// nil.
func GetClaims(c echo.Context) *bearer.Claims {
	claims, _ := c.Get(contextKeyClaims).(*bearer.Claims)
	return claims
}
