// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides echo middleware for sessions and access control.
package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"codeberg.org/cloudauth/lightadmin/internal/auth"
	"codeberg.org/cloudauth/lightadmin/internal/i18n"
	"codeberg.org/cloudauth/lightadmin/internal/services/session"
	"github.com/labstack/echo/v4"
)

// LoadUser resolves the session cookie and stores the user in the request context.
// Requests without a valid session continue anonymously.
func LoadUser(sessions *session.Manager, users session.UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			user, err := sessions.Resolve(r.Context(), r, users)
			if err != nil {
				slog.Error("session_resolve_failed", "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
			}
			if user != nil {
				c.SetRequest(r.WithContext(auth.SetUser(r.Context(), user)))
			}
			return next(c)
		}
	}
}

// RequireAuth redirects anonymous visitors to the login page.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if !auth.IsAuthenticated(ctx) {
			return c.Redirect(http.StatusSeeOther, "/login?error="+url.QueryEscape(i18n.T(ctx, "flash_login_required")))
		}
		return next(c)
	}
}

// RequireAdmin rejects non-admin users with 403. Use after RequireAuth.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if !auth.IsAdmin(ctx) {
			return echo.NewHTTPError(http.StatusForbidden, i18n.T(ctx, "error_forbidden"))
		}
		return next(c)
	}
}

// RedirectAuthenticated sends signed-in users away from the login and registration pages.
func RedirectAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if auth.IsAuthenticated(c.Request().Context()) {
			return c.Redirect(http.StatusSeeOther, "/")
		}
		return next(c)
	}
}
