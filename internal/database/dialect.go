// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"codeberg.org/cloudauth/lightadmin/internal/config"
	"github.com/go-sql-driver/mysql"
)

// Dialect identifies the SQL flavour behind a connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DialectFromDriverName maps a database/sql driver name back to its Dialect.
func DialectFromDriverName(name string) Dialect {
	switch name {
	case "mysql":
		return DialectMySQL
	case "pgx", "postgres":
		return DialectPostgres
	default:
		return DialectSQLite
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectPostgres:
		return "pgx"
	default:
		return "sqlite"
	}
}

// GooseDialect is the dialect name understood by goose.
func (d Dialect) GooseDialect() string {
	switch d {
	case DialectMySQL:
		return "mysql"
	case DialectPostgres:
		return "postgres"
	default:
		return "sqlite3"
	}
}

// ForUpdate appends a row-locking clause where the dialect supports one.
// SQLite relies on BEGIN IMMEDIATE instead.
func (d Dialect) ForUpdate(query string) string {
	if d == DialectSQLite {
		return query
	}
	return query + " FOR UPDATE"
}

func (d Dialect) defaultPort() int {
	if d == DialectPostgres {
		return 5432
	}
	return 3306
}

// DSN builds the connection string for the configured driver.
func DSN(cfg config.DatabaseConfig) (Dialect, string, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return "", "", err
	}
	if cfg.DSN != "" {
		return dialect, cfg.DSN, nil
	}

	port := cfg.Port
	if port == 0 {
		port = dialect.defaultPort()
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	switch dialect {
	case DialectMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = addr
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return dialect, mc.FormatDSN(), nil
	case DialectPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     addr,
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		return dialect, u.String(), nil
	default:
		return dialect, cfg.Path, nil
	}
}
