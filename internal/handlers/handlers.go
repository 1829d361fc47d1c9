// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/cloudauth/lightadmin/internal/repository"
	"codeberg.org/cloudauth/lightadmin/internal/templates"
	"github.com/labstack/echo/v4"
)

// PublicLoginLimit caps the public login history.
const PublicLoginLimit = 50

// Handlers contains the public page handlers.
type Handlers struct {
	repo *repository.Repository
}

// New creates a new Handlers instance.
func New(repo *repository.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

// Health reports service and database status. It always answers 200.
func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{Status: "ok", DB: "ok"}
	if err := h.repo.Ping(c.Request().Context()); err != nil {
		slog.Warn("health_check_db_failed", "error", err)
		resp = HealthResponse{Status: "degraded", DB: "error"}
	}
	return c.JSON(http.StatusOK, resp)
}

// Home renders the home page.
func (h *Handlers) Home(c echo.Context) error {
	return renderPage(c, "home_title", templates.Home())
}

// LoginHistory renders the most recent logins of all users.
func (h *Handlers) LoginHistory(c echo.Context) error {
	events, err := h.repo.ListLoginEvents(c.Request().Context(), PublicLoginLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return renderPage(c, "logins_title", templates.LoginHistory(events))
}
