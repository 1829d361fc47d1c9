// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strings"

	authsvc "codeberg.org/cloudauth/lightadmin/internal/services/auth"
	"codeberg.org/cloudauth/lightadmin/internal/services/session"
	"codeberg.org/cloudauth/lightadmin/internal/templates"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for registration, login and logout.
type AuthHandlers struct {
	auth     *authsvc.Service
	sessions *session.Manager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(auth *authsvc.Service, sessions *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		auth:     auth,
		sessions: sessions,
	}
}

// CredentialsForm is the form body of the login and registration pages.
type CredentialsForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// LoginPage renders the login form.
func (h *AuthHandlers) LoginPage(c echo.Context) error {
	return renderPage(c, "login_title", templates.LoginForm(c.QueryParam("error")))
}

// Login verifies credentials, records the login and starts a session.
func (h *AuthHandlers) Login(c echo.Context) error {
	var form CredentialsForm
	if err := c.Bind(&form); err != nil {
		return redirectWithError(c, "/login", t(c, "flash_invalid_credentials"))
	}

	username := strings.TrimSpace(form.Username)
	if err := h.sessions.Check(username); err != nil {
		return redirectWithError(c, "/login", t(c, "flash_username_unsupported"))
	}

	user, err := h.auth.Login(c.Request().Context(), username, form.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			return redirectWithError(c, "/login", t(c, "flash_invalid_credentials"))
		}
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return h.startSession(c, user.Username)
}

// RegisterPage renders the registration form.
func (h *AuthHandlers) RegisterPage(c echo.Context) error {
	return renderPage(c, "register_title", templates.RegisterForm(c.QueryParam("error")))
}

// Register creates an account and signs it in.
func (h *AuthHandlers) Register(c echo.Context) error {
	var form CredentialsForm
	if err := c.Bind(&form); err != nil {
		return redirectWithError(c, "/register", t(c, "flash_missing_fields"))
	}

	username := strings.TrimSpace(form.Username)
	if err := h.sessions.Check(username); err != nil {
		return redirectWithError(c, "/register", t(c, "flash_username_unsupported"))
	}

	user, err := h.auth.Register(c.Request().Context(), authsvc.RegisterParams{
		Username: username,
		Password: form.Password,
	})
	switch {
	case errors.Is(err, authsvc.ErrMissingFields):
		return redirectWithError(c, "/register", t(c, "flash_missing_fields"))
	case errors.Is(err, authsvc.ErrUserExists):
		return redirectWithError(c, "/register", t(c, "flash_user_exists"))
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return h.startSession(c, user.Username)
}

// Logout clears the session cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandlers) startSession(c echo.Context, username string) error {
	cookie, err := h.sessions.Create(username)
	if errors.Is(err, session.ErrUnsafeUsername) {
		return redirectWithError(c, "/login", t(c, "flash_username_unsupported"))
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	c.SetCookie(cookie)
	return c.Redirect(http.StatusSeeOther, "/")
}
