package profiles

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func TestRoutes_OpeningKeypadsIsRateLimited(t *testing.T) {
	f := newHandlerFixture(t)
	e := echo.New()
	RegisterRoutes(e, f.h, passThrough)

	status := func(method, path string) int {
		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}

	// All open routes draw from one budget per IP.
	for i := 0; i < opensPerMinute/2; i++ {
		assert.NotEqual(t, http.StatusTooManyRequests, status(http.MethodPost, "/profiles/admin/pin"))
		assert.NotEqual(t, http.StatusTooManyRequests, status(http.MethodPost, "/profiles/abc123/pin"))
	}
	assert.Equal(t, http.StatusTooManyRequests, status(http.MethodPost, "/profiles/admin/pin"))
	assert.Equal(t, http.StatusTooManyRequests, status(http.MethodGet, "/profiles?verify=admin"))

	// Plain grid loads are not counted.
	assert.NotEqual(t, http.StatusTooManyRequests, status(http.MethodGet, "/profiles"))
}
