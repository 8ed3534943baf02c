package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an IP's limiter is kept after its last request.
const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns middleware that allows each client IP a burst of
// maxRequests, refilled evenly over window. Requests beyond that get 429.
// Applied to login, registration, and every PIN keypad route.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	var mu sync.Mutex
	limiters := make(map[string]*ipLimiter)
	every := rate.Every(window / time.Duration(maxRequests))

	// Forget idle IPs so the map does not grow with every client ever seen.
	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, l := range limiters {
				if time.Since(l.lastSeen) > limiterIdleTTL {
					delete(limiters, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// RealIP honours TRUSTED_PROXIES; see TrustedProxies.
			ip := c.RealIP()

			mu.Lock()
			l, ok := limiters[ip]
			if !ok {
				l = &ipLimiter{limiter: rate.NewLimiter(every, maxRequests)}
				limiters[ip] = l
			}
			l.lastSeen = time.Now()
			allowed := l.limiter.Allow()
			mu.Unlock()

			if !allowed {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts. Please wait a moment and try again.")
			}
			return next(c)
		}
	}
}
