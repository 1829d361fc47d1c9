// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"
	"time"

	"codeberg.org/cloudauth/lightadmin/internal/database"
	"codeberg.org/cloudauth/lightadmin/internal/models"
	"github.com/vinovest/sqlx"
)

const loginEventColumns = "id, username, logged_in_at"

var loginEventsDDL = map[database.Dialect][]string{
	database.DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS login_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username VARCHAR(100) NOT NULL,
			logged_in_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_login_events_logged_in_at ON login_events (logged_in_at)`,
	},
	database.DialectMySQL: {
		`CREATE TABLE IF NOT EXISTS login_events (
			id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(100) NOT NULL,
			logged_in_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_login_events_logged_in_at (logged_in_at)
		)`,
	},
	database.DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS login_events (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(100) NOT NULL,
			logged_in_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_login_events_logged_in_at ON login_events (logged_in_at)`,
	},
}

// timestampLayouts are tried in order; time.Parse accepts fractional seconds after any seconds field.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an admin-entered timestamp and truncates it to whole seconds.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.Truncate(time.Second), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// EnsureLoginEventsSchema creates the login_events table if it is missing.
// After the first success further calls return immediately; a failure is retried next time.
func (r *Repository) EnsureLoginEventsSchema(ctx context.Context) error {
	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()

	if r.schemaReady {
		return nil
	}

	for _, stmt := range loginEventsDDL[r.dialect] {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return unavailable("ensure login_events", err)
		}
	}

	r.schemaReady = true
	return nil
}

// RecordLogin appends a login event stamped with the database clock.
func (r *Repository) RecordLogin(ctx context.Context, username string) error {
	if err := r.EnsureLoginEventsSchema(ctx); err != nil {
		return err
	}

	query := r.q("INSERT INTO login_events (username) VALUES (?)")
	if _, err := r.db.ExecContext(ctx, query, username); err != nil {
		return unavailable("record login", err)
	}
	return nil
}

// ListLoginEvents returns up to limit events, most recent first.
func (r *Repository) ListLoginEvents(ctx context.Context, limit int) ([]models.LoginEvent, error) {
	if err := r.EnsureLoginEventsSchema(ctx); err != nil {
		return nil, err
	}

	events := []models.LoginEvent{}
	query := r.q("SELECT " + loginEventColumns + " FROM login_events ORDER BY logged_in_at DESC, id DESC LIMIT ?")
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, unavailable("list login events", err)
	}
	return events, nil
}

// CountLoginEvents returns the number of stored login events.
func (r *Repository) CountLoginEvents(ctx context.Context) (int64, error) {
	if err := r.EnsureLoginEventsSchema(ctx); err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM login_events"); err != nil {
		return 0, unavailable("count login events", err)
	}
	return count, nil
}

// GetLoginEvent retrieves a single login event.
func (r *Repository) GetLoginEvent(ctx context.Context, id int64) (*models.LoginEvent, error) {
	if err := r.EnsureLoginEventsSchema(ctx); err != nil {
		return nil, err
	}

	var event models.LoginEvent
	query := r.q("SELECT " + loginEventColumns + " FROM login_events WHERE id = ?")
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, notFoundOr("get login event", err)
	}
	return &event, nil
}

// UpdateLoginEvent rewrites username and timestamp of an event.
// A missing id yields ErrNotFound before rawTimestamp is looked at, and
// nothing is written unless rawTimestamp parses.
func (r *Repository) UpdateLoginEvent(ctx context.Context, id int64, username, rawTimestamp string) error {
	if err := r.EnsureLoginEventsSchema(ctx); err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int64
		query := tx.Rebind("SELECT COUNT(*) FROM login_events WHERE id = ?")
		if err := tx.GetContext(ctx, &exists, query, id); err != nil {
			return unavailable("get login event", err)
		}
		if exists == 0 {
			return ErrNotFound
		}

		ts, err := ParseTimestamp(rawTimestamp)
		if err != nil {
			return err
		}

		update := tx.Rebind("UPDATE login_events SET username = ?, logged_in_at = ? WHERE id = ?")
		if _, err := tx.ExecContext(ctx, update, username, r.timeArg(ts), id); err != nil {
			return unavailable("update login event", err)
		}
		return nil
	})
}

// DeleteLoginEvent removes an event. Deleting a missing ID is not an error.
func (r *Repository) DeleteLoginEvent(ctx context.Context, id int64) error {
	if err := r.EnsureLoginEventsSchema(ctx); err != nil {
		return err
	}

	query := r.q("DELETE FROM login_events WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return unavailable("delete login event", err)
	}
	return nil
}

// timeArg formats ts the way the column default stores it on SQLite so rows sort consistently.
func (r *Repository) timeArg(ts time.Time) any {
	if r.dialect == database.DialectSQLite {
		return ts.UTC().Format(time.DateTime)
	}
	return ts
}
