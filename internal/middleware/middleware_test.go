// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"net/http"
	"testing"

	"codeberg.org/cloudauth/lightadmin/internal/auth"
	"codeberg.org/cloudauth/lightadmin/internal/config"
	"codeberg.org/cloudauth/lightadmin/internal/i18n"
	"codeberg.org/cloudauth/lightadmin/internal/middleware"
	"codeberg.org/cloudauth/lightadmin/internal/models"
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

const hashKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	mgr, err := session.NewManager(&config.SessionConfig{CookieName: "session_user", HashKey: hashKey}, false)
	require.NoError(t, err)
	return mgr
}

// captureUser is a handler that records the user seen in the request context.
func captureUser(seen **models.User) echo.HandlerFunc {
	return func(c echo.Context) error {
		*seen = auth.GetUser(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}
}

func TestLoadUser_WithSession(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	testutil.NewTestUser(t, repo, "alice", true)
	mgr := newManager(t)
	cookie, err := mgr.Create("alice")
	require.NoError(t, err)

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/", nil)
	c.Request().AddCookie(cookie)

	var seen *models.User
	err = middleware.LoadUser(mgr, repo)(captureUser(&seen))(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Username)
}

func TestLoadUser_Anonymous(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	mgr := newManager(t)

	e := echo.New()
	c, _ := testutil.NewEchoContext(e, http.MethodGet, "/", nil)

	var seen *models.User
	err := middleware.LoadUser(mgr, repo)(captureUser(&seen))(c)

	require.NoError(t, err)
	assert.Nil(t, seen)
}

func TestLoadUser_StoreFailure(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	mgr := newManager(t)
	cookie, err := mgr.Create("alice")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	e := echo.New()
	c, _ := testutil.NewEchoContext(e, http.MethodGet, "/", nil)
	c.Request().AddCookie(cookie)

	var seen *models.User
	err = middleware.LoadUser(mgr, repo)(captureUser(&seen))(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
}

func TestRequireAuth_Anonymous(t *testing.T) {
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/admin", nil)

	err := middleware.RequireAuth(func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error=Login+required", rec.Header().Get(echo.HeaderLocation))
}

func TestRequireAuth_Authenticated(t *testing.T) {
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/admin", nil)
	testutil.WithUser(c, &models.User{Username: "bob"})

	err := middleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_NonAdmin(t *testing.T) {
	e := echo.New()
	c, _ := testutil.NewEchoContext(e, http.MethodGet, "/admin", nil)
	testutil.WithUser(c, &models.User{Username: "bob"})

	err := middleware.RequireAdmin(func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestRequireAdmin_Admin(t *testing.T) {
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/admin", nil)
	testutil.WithUser(c, &models.User{Username: "alice", IsAdmin: true})

	err := middleware.RequireAdmin(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRedirectAuthenticated(t *testing.T) {
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/login", nil)
	testutil.WithUser(c, &models.User{Username: "bob"})

	err := middleware.RedirectAuthenticated(func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestLocale(t *testing.T) {
	e := echo.New()
	c, _ := testutil.NewEchoContext(e, http.MethodGet, "/", nil)
	c.Request().Header.Set("Accept-Language", "de-DE,de;q=0.9")

	var locale string
	err := middleware.Locale(func(c echo.Context) error {
		locale = i18n.GetLocale(c.Request().Context())
		return nil
	})(c)

	require.NoError(t, err)
	assert.Equal(t, "de", locale)
}
