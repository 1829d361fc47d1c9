// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/cloudauth/lightadmin/internal/auth"
	"codeberg.org/cloudauth/lightadmin/internal/i18n"
	"codeberg.org/cloudauth/lightadmin/internal/repository"
	authsvc "codeberg.org/cloudauth/lightadmin/internal/services/auth"
	"codeberg.org/cloudauth/lightadmin/internal/templates"
	"github.com/labstack/echo/v4"
)

// EditorLoginLimit caps the login events shown in the table editor.
const EditorLoginLimit = 200

const (
	adminPath  = "/admin"
	editorPath = "/admin/editor"
)

// DatabaseInfo describes the backing database on the admin overview.
type DatabaseInfo struct {
	Driver string
	Name   string
}

// AdminHandlers contains the admin-only pages and mutations.
// Routes must be guarded by middleware.RequireAuth and middleware.RequireAdmin.
type AdminHandlers struct {
	repo *repository.Repository
	auth *authsvc.Service
	db   DatabaseInfo
}

// NewAdmin creates a new AdminHandlers instance.
func NewAdmin(repo *repository.Repository, auth *authsvc.Service, db DatabaseInfo) *AdminHandlers {
	return &AdminHandlers{repo: repo, auth: auth, db: db}
}

// RoleForm toggles the admin flag of a user.
type RoleForm struct {
	Username string `form:"username"`
	IsAdmin  int    `form:"is_admin"`
}

// CreateUserForm creates an account from the admin overview.
type CreateUserForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	IsAdmin  int    `form:"is_admin"`
}

// UserRowForm is one user row of the table editor.
type UserRowForm struct {
	UserID      int64  `form:"user_id"`
	Username    string `form:"username"`
	IsAdmin     int    `form:"is_admin"`
	NewPassword string `form:"new_password"`
}

// LoginEventForm is one login event row of the table editor.
type LoginEventForm struct {
	EventID    int64  `form:"event_id"`
	Username   string `form:"username"`
	LoggedInAt string `form:"logged_in_at"`
}

// Overview lists all users with role toggles.
func (h *AdminHandlers) Overview(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.repo.ListUsers(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	logins, err := h.repo.CountLoginEvents(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return renderPage(c, "admin_title", templates.Admin(templates.AdminOverview{
		Users:      users,
		LoginCount: logins,
		Driver:     h.db.Driver,
		Database:   h.db.Name,
		Flash:      flashFromQuery(c),
	}))
}

// UpdateRole grants or revokes admin access.
func (h *AdminHandlers) UpdateRole(c echo.Context) error {
	var form RoleForm
	if err := c.Bind(&form); err != nil {
		return redirectWithError(c, adminPath, t(c, "flash_invalid_input"))
	}

	isAdmin := form.IsAdmin != 0
	if err := h.repo.SetAdminFlag(c.Request().Context(), form.Username, isAdmin); err != nil {
		return h.mutationFailed(c, adminPath, err)
	}

	slog.Info("admin_flag_updated", "by", actor(c), "username", form.Username, "is_admin", isAdmin)
	return redirectWithSuccess(c, adminPath, i18n.TData(c.Request().Context(), "flash_admin_updated", map[string]any{
		"Username": form.Username,
	}))
}

// CreateUser adds an account with the chosen role.
func (h *AdminHandlers) CreateUser(c echo.Context) error {
	var form CreateUserForm
	if err := c.Bind(&form); err != nil {
		return redirectWithError(c, adminPath, t(c, "flash_invalid_input"))
	}

	username := strings.TrimSpace(form.Username)
	user, err := h.auth.CreateUser(c.Request().Context(), username, form.Password, form.IsAdmin != 0)
	switch {
	case errors.Is(err, authsvc.ErrMissingFields):
		return redirectWithError(c, adminPath, t(c, "flash_missing_fields"))
	case errors.Is(err, authsvc.ErrUserExists):
		return redirectWithError(c, adminPath, t(c, "flash_user_exists"))
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	slog.Info("user_created", "by", actor(c), "user_id", user.ID, "username", user.Username, "is_admin", user.IsAdmin)
	return redirectWithSuccess(c, adminPath, i18n.TData(c.Request().Context(), "flash_user_created", map[string]any{
		"Username": user.Username,
	}))
}

// Editor renders the raw table editor for users and login events.
func (h *AdminHandlers) Editor(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.repo.ListUsersWithIDs(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	events, err := h.repo.ListLoginEvents(ctx, EditorLoginLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return renderPage(c, "editor_title", templates.Editor(templates.TableEditor{
		Users:  users,
		Events: events,
		Flash:  flashFromQuery(c),
	}))
}

// UpdateUser rewrites a user row. A blank password keeps the current one.
func (h *AdminHandlers) UpdateUser(c echo.Context) error {
	var form UserRowForm
	if err := c.Bind(&form); err != nil {
		return redirectWithError(c, editorPath, t(c, "flash_invalid_input"))
	}

	username := strings.TrimSpace(form.Username)
	if username == "" {
		return redirectWithError(c, editorPath, t(c, "flash_invalid_input"))
	}

	var passwordHash string
	if password := strings.TrimSpace(form.NewPassword); password != "" {
		hash, err := authsvc.HashPassword(password)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
		passwordHash = hash
	}

	ctx := c.Request().Context()
	if err := h.repo.UpdateUserRecord(ctx, form.UserID, username, form.IsAdmin != 0, passwordHash); err != nil {
		return h.mutationFailed(c, editorPath, err)
	}

	slog.Info("user_updated", "by", actor(c), "user_id", form.UserID, "username", username, "password_changed", passwordHash != "")
	return redirectWithSuccess(c, editorPath, t(c, "flash_user_updated"))
}

// UpdateLoginEvent rewrites the username and timestamp of a login event.
func (h *AdminHandlers) UpdateLoginEvent(c echo.Context) error {
	var form LoginEventForm
	if err := c.Bind(&form); err != nil {
		return redirectWithError(c, editorPath, t(c, "flash_invalid_input"))
	}

	err := h.repo.UpdateLoginEvent(c.Request().Context(), form.EventID, strings.TrimSpace(form.Username), form.LoggedInAt)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return redirectWithError(c, editorPath, t(c, "flash_event_not_found"))
		}
		return h.mutationFailed(c, editorPath, err)
	}

	slog.Info("login_event_updated", "by", actor(c), "event_id", form.EventID)
	return redirectWithSuccess(c, editorPath, t(c, "flash_event_updated"))
}

// DeleteLoginEvent removes a login event. Unknown IDs are ignored.
func (h *AdminHandlers) DeleteLoginEvent(c echo.Context) error {
	var form LoginEventForm
	if err := c.Bind(&form); err != nil {
		return redirectWithError(c, editorPath, t(c, "flash_invalid_input"))
	}

	if err := h.repo.DeleteLoginEvent(c.Request().Context(), form.EventID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	slog.Info("login_event_deleted", "by", actor(c), "event_id", form.EventID)
	return redirectWithSuccess(c, editorPath, t(c, "flash_event_deleted"))
}

// mutationFailed maps store errors to a flash message on path; anything else is a 500.
func (h *AdminHandlers) mutationFailed(c echo.Context, path string, err error) error {
	var messageID string
	switch {
	case errors.Is(err, repository.ErrLastAdmin):
		messageID = "flash_last_admin"
	case errors.Is(err, repository.ErrNotFound):
		messageID = "flash_user_not_found"
	case errors.Is(err, repository.ErrConflict):
		messageID = "flash_username_exists"
	case errors.Is(err, repository.ErrInvalidTimestamp):
		messageID = "flash_invalid_timestamp"
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return redirectWithError(c, path, t(c, messageID))
}

// actor names the admin performing a request, for audit log lines.
func actor(c echo.Context) string {
	if user := auth.GetUser(c.Request().Context()); user != nil {
		return user.Username
	}
	return ""
}
