// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/cloudauth/lightadmin/internal/templates"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders HTTP errors as HTML pages. Server errors are logged and
// shown with a generic message.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := t(c, "error_internal")

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok && code < http.StatusInternalServerError {
			message = m
		}
	}

	switch {
	case code == http.StatusNotFound:
		message = t(c, "error_not_found")
	case code >= http.StatusInternalServerError:
		slog.Error("request_failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", code,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	page := templates.Layout(t(c, "error_title"), templates.ErrorPage(code, message))
	if renderErr := Render(c, code, page); renderErr != nil {
		slog.Error("failed to render error page", "error", renderErr)
	}
}
