// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"codeberg.org/cloudauth/lightadmin/internal/config"
	"codeberg.org/cloudauth/lightadmin/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := config.LoadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		log.Fatal(err)
	}

	cmd := &cli.Command{
		Name:   "lightadmin",
		Usage:  "Light admin panel for users and login history",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web server (default)",
				Action: server.Run,
			},
			migrateCommand(),
			userCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
