// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"codeberg.org/cloudauth/lightadmin/internal/database"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vinovest/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a username is already taken
	ErrConflict = errors.New("username already exists")
	// ErrLastAdmin is returned when a change would leave no admin account
	ErrLastAdmin = errors.New("cannot remove the last admin")
	// ErrInvalidTimestamp is returned for timestamps that cannot be parsed
	ErrInvalidTimestamp = errors.New("invalid timestamp format")
	// ErrUnavailable wraps failures of the database itself
	ErrUnavailable = errors.New("database unavailable")
)

// Repository wraps sqlx for database operations
type Repository struct {
	db      *sqlx.DB
	dialect database.Dialect

	schemaMu    sync.Mutex
	schemaReady bool
}

// New creates a new Repository instance
func New(db *sqlx.DB) *Repository {
	return &Repository{
		db:      db,
		dialect: database.DialectFromDriverName(db.DriverName()),
	}
}

// DB returns the underlying sqlx DB for direct access
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// Ping checks that the database answers a trivial query.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// q rebinds ? placeholders for the active driver.
func (r *Repository) q(query string) string {
	return r.db.Rebind(query)
}

// withTx runs fn in a transaction, committing on success and rolling back otherwise.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// unavailable marks err as a database failure while keeping the driver error inspectable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// notFoundOr maps sql.ErrNoRows to ErrNotFound.
func notFoundOr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return unavailable(op, err)
}

// isUniqueViolation reports whether err is a unique-constraint failure from any supported driver.
func isUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
