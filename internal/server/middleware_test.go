// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/cloudauth/lightadmin/internal/ctxkeys"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestIsVersionedAsset(t *testing.T) {
	tests := []struct {
		version  string
		expected bool
	}{
		{"d073ff63", true},
		{"", false},
		{"ABCDEFGH", false},  // uppercase not allowed
		{"abcd123", false},   // wrong length
		{"abcd12345", false}, // wrong length
		{"abcdefgz", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.expected, isVersionedAsset(tt.version))
		})
	}
}

func TestStaticCacheHeaders(t *testing.T) {
	e := echo.New()
	e.Use(staticCacheHeaders())
	e.GET("/static/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	t.Run("versioned asset gets immutable cache", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/css/styles.css?v=abc12345", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
	})

	t.Run("unversioned asset revalidates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/static/css/styles.css", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	})

	t.Run("pages get no cache header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Cache-Control"))
	})
}

func TestCSSToContext(t *testing.T) {
	e := echo.New()
	e.Use(cssToContext("/static/css/styles.css?v=abc12345"))

	var cssPath string
	e.GET("/", func(c echo.Context) error {
		cssPath, _ = c.Request().Context().Value(ctxkeys.CSSPath{}).(string)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "/static/css/styles.css?v=abc12345", cssPath)
}

func TestCSRFToContext(t *testing.T) {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("csrf", "token-123")
			return next(c)
		}
	})
	e.Use(csrfToContext())

	var token string
	e.GET("/", func(c echo.Context) error {
		token, _ = c.Request().Context().Value(ctxkeys.CSRFToken{}).(string)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "token-123", token)
}
