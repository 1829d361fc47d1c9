// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"net/url"

	"codeberg.org/cloudauth/lightadmin/internal/i18n"
	"codeberg.org/cloudauth/lightadmin/internal/templates"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render renders a templ component with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(statusCode, buf.String())
}

// renderPage renders body inside the layout with a translated title.
func renderPage(c echo.Context, titleID string, body templ.Component) error {
	title := i18n.T(c.Request().Context(), titleID)
	return Render(c, http.StatusOK, templates.Layout(title, body))
}

// redirectWithError redirects to path carrying message in the error query parameter.
func redirectWithError(c echo.Context, path, message string) error {
	return c.Redirect(http.StatusSeeOther, path+"?error="+url.QueryEscape(message))
}

// redirectWithSuccess redirects to path carrying message in the success query parameter.
func redirectWithSuccess(c echo.Context, path, message string) error {
	return c.Redirect(http.StatusSeeOther, path+"?success="+url.QueryEscape(message))
}

// flashFromQuery reads the messages left by a previous redirect.
func flashFromQuery(c echo.Context) templates.Flash {
	return templates.Flash{
		Error:   c.QueryParam("error"),
		Success: c.QueryParam("success"),
	}
}

// t translates messageID for the current request.
func t(c echo.Context, messageID string) string {
	return i18n.T(c.Request().Context(), messageID)
}
