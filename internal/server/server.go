// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage and handlers into an echo server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/cloudauth/lightadmin/internal/assets"
	"codeberg.org/cloudauth/lightadmin/internal/config"
	"codeberg.org/cloudauth/lightadmin/internal/database"
	"codeberg.org/cloudauth/lightadmin/internal/handlers"
	"codeberg.org/cloudauth/lightadmin/internal/i18n"
	"codeberg.org/cloudauth/lightadmin/internal/middleware"
	"codeberg.org/cloudauth/lightadmin/internal/repository"
	authsvc "codeberg.org/cloudauth/lightadmin/internal/services/auth"
	"codeberg.org/cloudauth/lightadmin/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// shutdownTimeout bounds graceful shutdown after SIGINT or SIGTERM.
const shutdownTimeout = 10 * time.Second

// Deps are the long-lived objects shared by all requests.
type Deps struct {
	Repo     *repository.Repository
	Sessions *session.Manager
	Database handlers.DatabaseInfo
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"db_driver", cfg.Database.Driver,
	)

	// Database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Repository
	repo := repository.New(db)
	if schemaErr := repo.EnsureLoginEventsSchema(ctx); schemaErr != nil {
		// Retried lazily on the first request that touches login events.
		slog.Warn("login events schema not ready", "error", schemaErr)
	}

	// Sessions
	if cfg.Session.Plain && !isLocalBaseURL(cfg.Server.BaseURL) {
		slog.Warn("plain session cookies can be forged by any client", "base_url", cfg.Server.BaseURL)
	}
	sessions, err := session.NewManager(&cfg.Session, cfg.SecureCookies())
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	e := New(cfg, Deps{
		Repo:     repo,
		Sessions: sessions,
		Database: databaseInfo(cfg.Database),
	})

	return startWithGracefulShutdown(ctx, e, cfg)
}

// New builds the echo instance with middleware and routes.
func New(cfg *config.Config, deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg)
	setupRoutes(e, deps)

	return e
}

func setupRoutes(e *echo.Echo, deps Deps) {
	h := handlers.New(deps.Repo)
	authService := authsvc.NewService(deps.Repo)
	authH := handlers.NewAuth(authService, deps.Sessions)
	adminH := handlers.NewAdmin(deps.Repo, authService, deps.Database)

	// Static files and probes skip the session lookup
	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", assets.FileServer())))
	e.GET("/health", h.Health)

	app := e.Group("", middleware.LoadUser(deps.Sessions, deps.Repo))
	app.GET("/", h.Home)
	app.GET("/logins", h.LoginHistory)
	app.GET("/logout", authH.Logout)

	// Anonymous only
	app.GET("/login", authH.LoginPage, middleware.RedirectAuthenticated)
	app.POST("/login", authH.Login, middleware.RedirectAuthenticated)
	app.GET("/register", authH.RegisterPage, middleware.RedirectAuthenticated)
	app.POST("/register", authH.Register, middleware.RedirectAuthenticated)

	admin := app.Group("/admin", middleware.RequireAuth, middleware.RequireAdmin)
	admin.GET("", adminH.Overview)
	admin.POST("/role", adminH.UpdateRole)
	admin.POST("/users", adminH.CreateUser)
	admin.GET("/editor", adminH.Editor)
	admin.POST("/editor/users/update", adminH.UpdateUser)
	admin.POST("/editor/login/update", adminH.UpdateLoginEvent)
	admin.POST("/editor/login/delete", adminH.DeleteLoginEvent)
}

// databaseInfo describes the configured database without exposing credentials.
func databaseInfo(cfg config.DatabaseConfig) handlers.DatabaseInfo {
	name := cfg.Name
	if cfg.Driver == string(database.DialectSQLite) {
		name = cfg.Path
	}
	return handlers.DatabaseInfo{Driver: cfg.Driver, Name: name}
}

func isLocalBaseURL(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return config.IsLocalhost(u.Hostname())
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server", "reason", ctx.Err())
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
