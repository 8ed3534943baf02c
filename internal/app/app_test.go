package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidstube/web/internal/config"
	"github.com/kidstube/web/internal/plugins/audit"
	"github.com/kidstube/web/internal/plugins/tokenstore"
	"github.com/kidstube/web/internal/testutil"
)

// fakeBackend answers the handful of KidsTube API calls a login and the
// profile grid make.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	token := testutil.Token(t, jwt.MapClaims{"id": "u1", "name": "Ana", "exp": time.Now().Add(time.Hour).Unix()})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "correct horse" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{{"_id": "u1", "name": "Ana", "pin": "998877"}})
	})
	mux.HandleFunc("GET /admin/restricted_users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{{"_id": "abc123", "full_name": "Mia", "pin": "445566"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	rdb, _ := testutil.NewRedis(t)
	cfg := &config.Config{
		Env:     "development",
		Backend: config.BackendConfig{URL: fakeBackend(t).URL, Timeout: 5 * time.Second},
		Auth:    config.AuthConfig{SecretKey: testutil.TestSecret, StoreTTL: time.Hour},
		PIN: config.PINConfig{
			SubmitDelay:       300 * time.Millisecond,
			LockoutCloseDelay: 2 * time.Second,
			VerifyTimeout:     5 * time.Second,
			ChallengeIdle:     10 * time.Minute,
		},
		UI: config.UIConfig{RedirectDelay: 2 * time.Second, AcceptedDelay: 800 * time.Millisecond},
	}

	a, err := New(cfg, nil, rdb, audit.NewDisabledService())
	require.NoError(t, err)
	a.RegisterRoutes()
	return a
}

// browser keeps cookies between requests the way a real one would.
type browser struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, a *App) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.app.Echo.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if c, ok := b.cookies["kidstube_csrf"]; ok {
		form.Set("csrf_token", c.Value)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func TestApp_GatedPageRedirectsToNotice(t *testing.T) {
	b := newBrowser(t, newTestApp(t))

	w := b.get("/profiles")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/notice?reason=login_required", w.Header().Get("Location"))

	w = b.get("/notice?reason=login_required")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `url=/login`)
}

func TestApp_LoginReturnsToRequestedPage(t *testing.T) {
	b := newBrowser(t, newTestApp(t))
	b.get("/kids")

	w := b.post("/login", url.Values{"username": {"ana@example.com"}, "password": {"correct horse"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/kids", w.Header().Get("Location"))

	w = b.get("/profiles")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Mia")
	assert.NotContains(t, body, "445566")
	assert.Contains(t, body, "Log out")
}

func TestApp_LoginIssuesNewSessionID(t *testing.T) {
	a := newTestApp(t)
	b := newBrowser(t, a)
	b.get("/login")
	before := b.cookies[tokenstore.CookieName].Value
	require.NotEmpty(t, before)

	w := b.post("/login", url.Values{"username": {"ana@example.com"}, "password": {"correct horse"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	after := b.cookies[tokenstore.CookieName].Value
	assert.NotEqual(t, before, after)

	// A second browser still holding the pre-login id gets nothing.
	stale := newBrowser(t, a)
	stale.cookies[tokenstore.CookieName] = &http.Cookie{Name: tokenstore.CookieName, Value: before}
	w = stale.get("/profiles")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/notice?reason=login_required", w.Header().Get("Location"))

	w = b.get("/profiles")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApp_RejectedTokenExplainsBeforeLogin(t *testing.T) {
	a := newTestApp(t)
	b := newBrowser(t, a)
	b.get("/login")
	b.post("/login", url.Values{"username": {"ana@example.com"}, "password": {"correct horse"}})

	// Well-formed and unexpired, but not a token the backend issued.
	revoked := testutil.Token(t, jwt.MapClaims{"id": "u1", "name": "Ana", "jti": "revoked", "exp": time.Now().Add(time.Hour).Unix()})
	sid := b.cookies[tokenstore.CookieName].Value
	require.NoError(t, a.Store.Write(context.Background(), sid, tokenstore.KeyToken, revoked))

	w := b.get("/profiles")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/notice?reason=invalid_token", w.Header().Get("Location"))
	assert.False(t, a.Store.IsPresent(context.Background(), sid, tokenstore.KeyToken))

	w = b.get("/notice?reason=invalid_token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your session is no longer valid. Please log in again.")
	assert.Contains(t, w.Body.String(), `url=/login`)
}

func TestApp_PostWithoutCSRFIsForbidden(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=a&password=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	a.Echo.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or missing CSRF token")
}

func TestApp_AdminNeedsPIN(t *testing.T) {
	b := newBrowser(t, newTestApp(t))
	b.get("/login")
	b.post("/login", url.Values{"username": {"ana@example.com"}, "password": {"correct horse"}})

	w := b.get("/admin")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/notice?reason=admin_pin_required", w.Header().Get("Location"))
}

func TestApp_UnknownPageRendersErrorPage(t *testing.T) {
	b := newBrowser(t, newTestApp(t))
	b.get("/login")
	b.post("/login", url.Values{"username": {"ana@example.com"}, "password": {"correct horse"}})

	w := b.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "404 Not Found")
}

func TestApp_Healthz(t *testing.T) {
	b := newBrowser(t, newTestApp(t))

	w := b.get("/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	assert.NotContains(t, status, "database")
}
