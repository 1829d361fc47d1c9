// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"codeberg.org/cloudauth/lightadmin/internal/auth"
	"codeberg.org/cloudauth/lightadmin/internal/database"
	"codeberg.org/cloudauth/lightadmin/internal/models"
	"codeberg.org/cloudauth/lightadmin/internal/repository"
	authsvc "codeberg.org/cloudauth/lightadmin/internal/services/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// TestPassword is the plaintext password of every user created by NewTestUser.
const TestPassword = "secret-password"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a test user with TestPassword in the database.
func NewTestUser(t *testing.T, repo *repository.Repository, username string, isAdmin bool) *models.User {
	t.Helper()
	hash, err := authsvc.HashPassword(TestPassword)
	require.NoError(t, err)
	user, err := repo.CreateUser(context.Background(), username, hash, isAdmin)
	require.NoError(t, err)
	return user
}

// NewTestLoginEvent records a login for username and returns the stored event.
func NewTestLoginEvent(t *testing.T, repo *repository.Repository, username string) *models.LoginEvent {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.RecordLogin(ctx, username))
	events, err := repo.ListLoginEvents(ctx, 1000)
	require.NoError(t, err)
	for i := range events {
		if events[i].Username == username {
			return &events[i]
		}
	}
	t.Fatalf("login event for %q not found", username)
	return nil
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewFormContext creates an Echo context carrying an urlencoded form body.
func NewFormContext(e *echo.Echo, path string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// WithUser stores user in the request context as the session middleware would.
func WithUser(c echo.Context, user *models.User) echo.Context {
	ctx := auth.SetUser(c.Request().Context(), user)
	c.SetRequest(c.Request().WithContext(ctx))
	return c
}

// FindCookie returns the named cookie set on the recorded response, or nil.
func FindCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
