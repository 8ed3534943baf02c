package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCSRF(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	w := httptest.NewRecorder()
	c := echo.New().NewContext(req, w)
	err := CSRF()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return w, c, err
}

func TestCSRF_IssuesCookieOnFirstVisit(t *testing.T) {
	w, c, err := runCSRF(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, csrfCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Len(t, cookies[0].Value, csrfTokenLength*2)
	assert.Equal(t, cookies[0].Value, GetCSRFToken(c))
}

func TestCSRF_RejectsPostWithoutCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/pin/digit", nil)
	req.Header.Set(csrfHeaderName, "anything")

	_, _, err := runCSRF(t, req)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)
}

func TestCSRF_AcceptsHeaderOrFormField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/pin/digit", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	req.Header.Set(csrfHeaderName, "tok")
	_, _, err := runCSRF(t, req)
	require.NoError(t, err)

	form := url.Values{csrfFormField: {"tok"}}
	req = httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	_, _, err = runCSRF(t, req)
	require.NoError(t, err)
}

func TestCSRF_RejectsMismatch(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/pin/digit", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	req.Header.Set(csrfHeaderName, "other")

	_, _, err := runCSRF(t, req)
	require.Error(t, err)
}

func TestRotateCSRFToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "old"})
	w := httptest.NewRecorder()
	c := echo.New().NewContext(req, w)
	c.Set(csrfContextKey, "old")

	require.NoError(t, RotateCSRFToken(c))
	assert.NotEqual(t, "old", GetCSRFToken(c))
	assert.Equal(t, GetCSRFToken(c), w.Result().Cookies()[0].Value)
}

func TestRedirect(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	require.NoError(t, Redirect(echo.New().NewContext(req, w), "/profiles"))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "/profiles", w.Header().Get("HX-Redirect"))

	w = httptest.NewRecorder()
	require.NoError(t, Redirect(echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), w), "/profiles"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profiles", w.Header().Get("Location"))
}

func TestIsHTMX_IgnoresBoosted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Boosted", "true")
	assert.False(t, IsHTMX(echo.New().NewContext(req, httptest.NewRecorder())))
}
