package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/robalyx/retract/internal/database"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema of the postgres and sqlite backends",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Run pending migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withDatabase(ctx, func(db *database.Client) error {
						applied, err := db.Migrate(ctx)
						if err != nil {
							return err
						}

						if len(applied) == 0 {
							log.Println("No new migrations to run (database is up to date)")
							return nil
						}

						log.Printf("Applied migrations: %s", strings.Join(applied, ", "))

						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "List pending migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withDatabase(ctx, func(db *database.Client) error {
						pending, err := db.PendingMigrations(ctx)
						if err != nil {
							return err
						}

						if len(pending) == 0 {
							log.Println("Database is up to date")
							return nil
						}

						log.Printf("Pending migrations: %s", strings.Join(pending, ", "))

						return nil
					})
				},
			},
		},
	}
}

func withDatabase(ctx context.Context, fn func(db *database.Client) error) error {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if cfg.Common.Storage.Backend == "file" {
		log.Println("The file storage backend has no schema to migrate")
		return nil
	}

	logManager := telemetry.NewManager(telemetry.ServiceMigrate, MigrateLogDir, &cfg.Common.Debug)

	_, storageLogger, err := logManager.GetLoggers()
	if err != nil {
		return err
	}
	defer storageLogger.Sync() //nolint:errcheck

	db, err := database.NewConnection(ctx, &cfg.Common, storageLogger, false)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(db)
}
