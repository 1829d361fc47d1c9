// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Session  SessionConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// DatabaseConfig keeps the DB_* variables of the deployment environment.
// DSN, when set, overrides the individual connection fields.
type DatabaseConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Driver   string // mysql, postgres, sqlite
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string // sqlite file
	DSN      string
}

type SessionConfig struct { //nolint:govet // fieldalignment not critical
	CookieName string // Session cookie name
	MaxAge     int    // Cookie max age in seconds, 0 keeps a browser-session cookie
	HashKey    string // 32-byte hex string for HMAC signing
	BlockKey   string // 32-byte hex string for AES encryption (optional)
	Plain      bool   // Store the bare username without signing
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(cmd.String("db-driver")),
			Host:     cmd.String("db-host"),
			Port:     int(cmd.Int("db-port")),
			User:     cmd.String("db-user"),
			Password: cmd.String("db-password"),
			Name:     cmd.String("db-name"),
			Path:     cmd.String("db-path"),
			DSN:      cmd.String("database-dsn"),
		},
		Session: SessionConfig{
			CookieName: cmd.String("session-cookie-name"),
			MaxAge:     int(cmd.Int("session-max-age")),
			HashKey:    cmd.String("session-hash-key"),
			BlockKey:   cmd.String("session-block-key"),
			Plain:      cmd.Bool("session-plain"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// SecureCookies reports whether cookies should carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.Server.BaseURL, "https://")
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}

	// Hide default port in URL
	if port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		// Database flags
		&cli.StringFlag{
			Name:    "db-driver",
			Value:   "mysql",
			Usage:   "Database driver (mysql, postgres, sqlite)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_DRIVER"), toml.TOML("database.driver", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-host",
			Value:   "127.0.0.1",
			Usage:   "Database host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_HOST"), toml.TOML("database.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "db-port",
			Usage:   "Database port (0 selects 3306 for mysql, 5432 for postgres)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_PORT"), toml.TOML("database.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-user",
			Value:   "root",
			Usage:   "Database user",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_USER"), toml.TOML("database.user", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-password",
			Usage:   "Database password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_PASSWORD"), toml.TOML("database.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-name",
			Value:   "cloudauth",
			Usage:   "Database name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_NAME"), toml.TOML("database.name", configFile)),
		},
		&cli.StringFlag{
			Name:    "db-path",
			Value:   "./data/app.db",
			Usage:   "SQLite database path (sqlite driver only)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DB_PATH"), toml.TOML("database.path", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Usage:   "Full database DSN, overrides the individual db-* flags",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// Session flags
		&cli.StringFlag{
			Name:    "session-cookie-name",
			Value:   "session_user",
			Usage:   "Session cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_COOKIE_NAME"), toml.TOML("session.cookie_name", configFile)),
		},
		&cli.IntFlag{
			Name:    "session-max-age",
			Usage:   "Session cookie max age in seconds (0 = until the browser closes)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_MAX_AGE"), toml.TOML("session.max_age", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-hash-key",
			Usage:   "Session hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_HASH_KEY"), toml.TOML("session.hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "session-block-key",
			Usage:   "Session block key for encryption (32-byte hex, optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_BLOCK_KEY"), toml.TOML("session.block_key", configFile)),
		},
		&cli.BoolFlag{
			Name:    "session-plain",
			Usage:   "Store the plain username in the session cookie without signing (legacy clients; usernames with quotes, semicolons, backslashes or non-ASCII bytes cannot sign in)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SESSION_PLAIN"), toml.TOML("session.plain", configFile)),
		},
	}
}
