// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"codeberg.org/cloudauth/lightadmin/internal/config"
	"codeberg.org/cloudauth/lightadmin/internal/handlers"
	"codeberg.org/cloudauth/lightadmin/internal/i18n"
	"codeberg.org/cloudauth/lightadmin/internal/repository"
	"codeberg.org/cloudauth/lightadmin/internal/server"
	"codeberg.org/cloudauth/lightadmin/internal/services/session"
	"codeberg.org/cloudauth/lightadmin/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if err := i18n.Init(); err != nil {
		panic(err)
	}
}

// browser keeps cookies between requests and fills in the CSRF token on form posts.
type browser struct {
	t       *testing.T
	e       *echo.Echo
	cookies map[string]*http.Cookie
}

func newTestServer(t *testing.T) (*echo.Echo, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8080, BaseURL: "http://localhost:8080", MaxBodySize: 1},
	}
	sessions, err := session.NewManager(&config.SessionConfig{
		CookieName: "session_user",
		HashKey:    "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	}, false)
	require.NoError(t, err)

	e := server.New(cfg, server.Deps{
		Repo:     repo,
		Sessions: sessions,
		Database: handlers.DatabaseInfo{Driver: "sqlite", Name: ":memory:"},
	})
	return e, repo
}

func newBrowser(t *testing.T, e *echo.Echo) *browser {
	b := &browser{t: t, e: e, cookies: map[string]*http.Cookie{}}
	b.get("/")
	require.Contains(t, b.cookies, "_csrf")
	return b
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range b.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	b.e.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(b.cookies, cookie.Name)
			continue
		}
		b.cookies[cookie.Name] = cookie
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if csrf, ok := b.cookies["_csrf"]; ok {
		form.Set("csrf_token", csrf.Value)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.do(req)
}

func (b *browser) register(username string) {
	rec := b.post("/register", url.Values{"username": {username}, "password": {"pw-" + username}})
	require.Equal(b.t, http.StatusSeeOther, rec.Code)
	require.Equal(b.t, "/", rec.Header().Get(echo.HeaderLocation))
}

func (b *browser) login(username string) {
	rec := b.post("/login", url.Values{"username": {username}, "password": {"pw-" + username}})
	require.Equal(b.t, http.StatusSeeOther, rec.Code)
	require.Equal(b.t, "/", rec.Header().Get(echo.HeaderLocation))
}

func (b *browser) logout() {
	rec := b.get("/logout")
	require.Equal(b.t, http.StatusSeeOther, rec.Code)
	require.NotContains(b.t, b.cookies, "session_user")
}

func flash(t *testing.T, rec *httptest.ResponseRecorder) (errMsg, success string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	return loc.Query().Get("error"), loc.Query().Get("success")
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","db":"ok"}`, rec.Body.String())
}

func TestStaticStylesheet(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/static/css/styles.css", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/css")
}

func TestUnknownRoute(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestPagesCarryCSRFToken(t *testing.T) {
	e, _ := newTestServer(t)
	b := newBrowser(t, e)

	rec := b.get("/login")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="csrf_token" value="`+b.cookies["_csrf"].Value+`"`)
}

func TestPostWithoutCSRFTokenRejected(t *testing.T) {
	e, repo := newTestServer(t)

	form := url.Values{"username": {"alice"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	count, err := repo.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAdminRequiresLogin(t *testing.T) {
	e, _ := newTestServer(t)
	b := newBrowser(t, e)

	rec := b.get("/admin")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error=Login+required", rec.Header().Get(echo.HeaderLocation))
}

func TestAdminForbiddenForRegularUsers(t *testing.T) {
	e, repo := newTestServer(t)
	testutil.NewTestUser(t, repo, "root", true)
	b := newBrowser(t, e)
	b.register("bob")

	rec := b.get("/admin/editor")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admins only")
}

func TestLoggedInUserRedirectedFromLogin(t *testing.T) {
	e, _ := newTestServer(t)
	b := newBrowser(t, e)
	b.register("alice")

	rec := b.get("/login")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestForgedSessionCookieIsAnonymous(t *testing.T) {
	e, repo := newTestServer(t)
	testutil.NewTestUser(t, repo, "alice", true)
	b := newBrowser(t, e)
	b.cookies["session_user"] = &http.Cookie{Name: "session_user", Value: "alice"}

	rec := b.get("/admin")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error=Login+required", rec.Header().Get(echo.HeaderLocation))
}

func TestAdminHandOverScenario(t *testing.T) {
	e, repo := newTestServer(t)
	ctx := context.Background()

	alice := newBrowser(t, e)
	alice.register("alice")
	bob := newBrowser(t, e)
	bob.register("bob")

	rec := alice.get("/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "bob")

	// The sole admin cannot step down
	errMsg, _ := flash(t, alice.post("/admin/role", url.Values{"username": {"alice"}, "is_admin": {"0"}}))
	assert.Equal(t, "Cannot remove the last admin.", errMsg)

	// Promote bob, then alice may step down
	errMsg, success := flash(t, alice.post("/admin/role", url.Values{"username": {"bob"}, "is_admin": {"1"}}))
	assert.Empty(t, errMsg)
	assert.Equal(t, "Updated admin access for bob.", success)

	errMsg, _ = flash(t, alice.post("/admin/role", url.Values{"username": {"alice"}, "is_admin": {"0"}}))
	assert.Empty(t, errMsg)

	// Alice lost access, bob is now the last admin
	assert.Equal(t, http.StatusForbidden, alice.get("/admin").Code)

	errMsg, _ = flash(t, bob.post("/admin/role", url.Values{"username": {"bob"}, "is_admin": {"0"}}))
	assert.Equal(t, "Cannot remove the last admin.", errMsg)

	admins, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)
}

func TestLoginRecordsHistory(t *testing.T) {
	e, repo := newTestServer(t)
	ctx := context.Background()

	b := newBrowser(t, e)
	b.register("alice")
	b.logout()

	rec := b.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	errMsg, _ := flash(t, rec)
	assert.Equal(t, "Invalid credentials", errMsg)
	assert.NotContains(t, b.cookies, "session_user")

	count, err := repo.CountLoginEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	b.login("alice")
	assert.Contains(t, b.cookies, "session_user")

	count, err = repo.CountLoginEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	rec = b.get("/logins")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>alice</strong>")
}

func TestTableEditorFlow(t *testing.T) {
	e, repo := newTestServer(t)
	ctx := context.Background()

	b := newBrowser(t, e)
	b.register("alice")
	b.logout()
	b.login("alice")

	events, err := repo.ListLoginEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	id := events[0].ID

	rec := b.get("/admin/editor")
	require.Equal(t, http.StatusOK, rec.Code)

	errMsg, _ := flash(t, b.post("/admin/editor/login/update", url.Values{
		"event_id":     {strconv.FormatInt(id, 10)},
		"username":     {"alice"},
		"logged_in_at": {"not-a-date"},
	}))
	assert.Equal(t, "Invalid timestamp format.", errMsg)

	errMsg, _ = flash(t, b.post("/admin/editor/login/update", url.Values{
		"event_id":     {strconv.FormatInt(id, 10)},
		"username":     {"alice"},
		"logged_in_at": {"2024-01-05 10:30:00"},
	}))
	assert.Empty(t, errMsg)

	event, err := repo.GetLoginEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05T10:30:00", event.InputValue())

	_, success := flash(t, b.post("/admin/editor/login/delete", url.Values{"event_id": {strconv.FormatInt(id, 10)}}))
	assert.Equal(t, "Login event deleted", success)

	_, success = flash(t, b.post("/admin/editor/login/delete", url.Values{"event_id": {strconv.FormatInt(id, 10)}}))
	assert.Equal(t, "Login event deleted", success)

	count, err := repo.CountLoginEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGermanLocale(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `lang="de"`)
}
