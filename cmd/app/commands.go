// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/cloudauth/lightadmin/internal/config"
	"codeberg.org/cloudauth/lightadmin/internal/database"
	"codeberg.org/cloudauth/lightadmin/internal/repository"
	authsvc "codeberg.org/cloudauth/lightadmin/internal/services/auth"
	"github.com/urfave/cli/v3"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the users schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: migrateAction(database.RunMigrations),
			},
			{
				Name:   "down",
				Usage:  "Roll back the last migration",
				Action: migrateAction(database.MigrateDown),
			},
			{
				Name:   "reset",
				Usage:  "Roll back all migrations",
				Action: migrateAction(database.MigrateReset),
			},
		},
	}
}

func migrateAction(run func(*sql.DB, database.Dialect) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)

		db, dialect, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			_ = db.Close()
		}()

		if err := run(db.DB, dialect); err != nil {
			return fmt.Errorf("migrate %s: %w", cmd.Name, err)
		}
		return nil
	}
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage accounts",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create an account",
				ArgsUsage: "<username> <password>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "admin",
						Usage: "Grant admin access",
					},
				},
				Action: createUser,
			},
		},
	}
}

func createUser(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return errors.New("usage: user create [--admin] <username> <password>")
	}
	username, password := cmd.Args().Get(0), cmd.Args().Get(1)

	cfg := config.NewFromCLI(cmd)
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	svc := authsvc.NewService(repository.New(db))
	user, err := svc.CreateUser(ctx, username, password, cmd.Bool("admin"))
	if err != nil {
		return err
	}

	slog.Info("user_created", "user_id", user.ID, "username", user.Username, "is_admin", user.IsAdmin)
	return nil
}
