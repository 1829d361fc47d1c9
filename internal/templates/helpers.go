// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates renders the HTML pages of the panel. The *_templ.go files
// are generated from the .templ sources with `templ generate`.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate

import (
	"context"
	"time"

	"codeberg.org/cloudauth/lightadmin/internal/auth"
	"codeberg.org/cloudauth/lightadmin/internal/ctxkeys"
	"codeberg.org/cloudauth/lightadmin/internal/i18n"
	"codeberg.org/cloudauth/lightadmin/internal/models"
	"github.com/a-h/templ"
)

// Flash carries the one-shot messages passed through ?error= and ?success=.
type Flash struct {
	Error   string
	Success string
}

// AdminOverview is the data shown on the admin landing page.
type AdminOverview struct {
	Users      []models.User
	LoginCount int64
	Driver     string
	Database   string
	Flash      Flash
}

// TableEditor is the data shown on the raw table editor.
type TableEditor struct {
	Users  []models.User
	Events []models.LoginEvent
	Flash  Flash
}

// credentialsPage holds the message IDs and target of a username/password form.
type credentialsPage struct {
	TitleID       string
	IntroID       string
	Action        string
	PlaceholderID string
	ButtonID      string
}

// LoginForm renders the sign-in form.
func LoginForm(errorMessage string) templ.Component {
	return credentialsForm(credentialsPage{
		TitleID:       "login_title",
		Action:        "/login",
		PlaceholderID: "login_password_placeholder",
		ButtonID:      "login_button",
	}, errorMessage)
}

// RegisterForm renders the account creation form.
func RegisterForm(errorMessage string) templ.Component {
	return credentialsForm(credentialsPage{
		TitleID:       "register_title",
		IntroID:       "register_intro",
		Action:        "/register",
		PlaceholderID: "register_password_placeholder",
		ButtonID:      "register_button",
	}, errorMessage)
}

// CSRFToken returns the CSRF token from the context.
func CSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(ctxkeys.CSRFToken{}).(string); ok {
		return token
	}
	return ""
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return i18n.T(ctx, messageID)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return i18n.TData(ctx, messageID, data)
}

// Locale returns the current locale.
func Locale(ctx context.Context) string {
	return i18n.GetLocale(ctx)
}

// CSSPath returns the versioned stylesheet URL.
func CSSPath(ctx context.Context) string {
	if path, ok := ctx.Value(ctxkeys.CSSPath{}).(string); ok {
		return path
	}
	return "/static/css/styles.css"
}

// GetUser returns the authenticated user from context, or nil if not logged in.
func GetUser(ctx context.Context) *models.User {
	return auth.GetUser(ctx)
}

// FormatTime renders a stored timestamp for display.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateTime)
}

// TPlural translates a message with plural support.
func TPlural(ctx context.Context, messageID string, count int) string {
	return i18n.TPlural(ctx, messageID, count)
}

func roleID(isAdmin bool) string {
	if isAdmin {
		return "role_admin"
	}
	return "role_user"
}
