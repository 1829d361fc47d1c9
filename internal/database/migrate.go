// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var embedMigrations embed.FS

func prepareGoose(dialect Dialect) (string, error) {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(dialect.GooseDialect()); err != nil {
		return "", err
	}
	return "migrations/" + string(dialect), nil
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(db *sql.DB, dialect Dialect) error {
	dir, err := prepareGoose(dialect)
	if err != nil {
		return err
	}
	return goose.Up(db, dir)
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sql.DB, dialect Dialect) error {
	dir, err := prepareGoose(dialect)
	if err != nil {
		return err
	}
	return goose.Down(db, dir)
}

// MigrateReset rolls back all migrations.
func MigrateReset(db *sql.DB, dialect Dialect) error {
	dir, err := prepareGoose(dialect)
	if err != nil {
		return err
	}
	return goose.Reset(db, dir)
}
