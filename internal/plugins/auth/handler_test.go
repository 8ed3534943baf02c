package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidstube/web/internal/clock"
	"github.com/kidstube/web/internal/plugins/tokenstore"
	"github.com/kidstube/web/internal/testutil"
)

type recordingCloser struct{ closed []string }

func (r *recordingCloser) Close(sid string) { r.closed = append(r.closed, sid) }

func newTestHandler(t *testing.T) (*Handler, *tokenstore.RedisStore, *recordingCloser) {
	t.Helper()
	backend, _ := acceptingBackend(t)
	store := testutil.NewStore(t)
	pins := &recordingCloser{}
	return NewHandler(NewAuthService(backend, store, clock.Fake(now)), store, pins), store, pins
}

func post(path string, form url.Values, htmx bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func serve(t *testing.T, h echo.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req.AddCookie(&http.Cookie{Name: tokenstore.CookieName, Value: sid})
	w := httptest.NewRecorder()
	c := echo.New().NewContext(req, w)
	return w, tokenstore.BrowserSession(3600)(h)(c)
}

func TestLoginHandler_HTMXSuccessRedirects(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w, err := serve(t, h.Login, post("/login", url.Values{"username": {"ana@example.com"}, "password": {"correct horse"}}, true))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "/profiles", w.Header().Get("HX-Redirect"))
}

func TestLoginHandler_IssuesNewSessionCookie(t *testing.T) {
	h, store, pins := newTestHandler(t)

	w, err := serve(t, h.Login, post("/login", url.Values{"username": {"ana@example.com"}, "password": {"correct horse"}}, false))
	require.NoError(t, err)
	require.Equal(t, http.StatusSeeOther, w.Code)

	var issued string
	for _, c := range w.Result().Cookies() {
		if c.Name == tokenstore.CookieName {
			issued = c.Value
			assert.True(t, c.HttpOnly)
			assert.Equal(t, 3600, c.MaxAge)
		}
	}
	require.NotEmpty(t, issued)
	assert.NotEqual(t, sid, issued)

	ctx := context.Background()
	assert.True(t, store.IsPresent(ctx, issued, tokenstore.KeyToken))
	assert.False(t, store.IsPresent(ctx, sid, tokenstore.KeyToken))
	assert.Equal(t, []string{sid}, pins.closed)
}

func TestLoginHandler_FailureKeepsSessionCookie(t *testing.T) {
	h, _, pins := newTestHandler(t)

	w, err := serve(t, h.Login, post("/login", url.Values{"username": {"ana@example.com"}, "password": {"wrong-pass"}}, false))
	require.NoError(t, err)
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, tokenstore.CookieName, c.Name)
	}
	assert.Empty(t, pins.closed)
}

func TestLoginHandler_FailureRerendersForm(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w, err := serve(t, h.Login, post("/login", url.Values{"username": {"ana@example.com"}, "password": {"wrong-pass"}}, true))
	require.NoError(t, err)
	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "invalid username or password")
	assert.Contains(t, body, `value="ana@example.com"`)
	assert.NotContains(t, body, "wrong-pass")
	assert.NotContains(t, body, "<html")
}

func TestLoginForm_SignedInSkipsForm(t *testing.T) {
	h, store, _ := newTestHandler(t)
	require.NoError(t, store.Save(context.Background(), sid, tokenstore.Session{Token: "tok", AdminID: "u1"}))

	w, err := serve(t, h.LoginForm, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profiles", w.Header().Get("Location"))
}

func TestRegisterHandler_ValidationKeepsInput(t *testing.T) {
	h, _, _ := newTestHandler(t)
	form := url.Values{
		"email": {"ana@example.com"}, "name": {"Ana"}, "lastname": {"Mora"},
		"password": {"correct horse"}, "confirm": {"correct horse"},
		"pin": {"123"}, "birthdate": {"1990-05-20"},
	}

	w, err := serve(t, h.Register, post("/register", form, false))
	require.NoError(t, err)
	body := w.Body.String()
	assert.Contains(t, body, "PIN must be exactly 6 digits")
	assert.Contains(t, body, `value="Mora"`)
	assert.NotContains(t, body, "correct horse")
	assert.Contains(t, body, "<html")
}

func TestLogoutHandler(t *testing.T) {
	h, store, pins := newTestHandler(t)
	require.NoError(t, store.Save(context.Background(), sid, tokenstore.Session{Token: "tok", AdminID: "u1"}))

	w, err := serve(t, h.Logout, post("/logout", nil, false))
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, []string{sid}, pins.closed)
	assert.False(t, store.IsPresent(context.Background(), sid, tokenstore.KeyToken))
}
