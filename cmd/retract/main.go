package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"
	// MigrateLogDir specifies where migration log files are stored.
	MigrateLogDir = "logs/migrate_logs"
	// ExportLogDir specifies where export log files are stored.
	ExportLogDir = "logs/export_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "retract",
		Usage: "Deletion moderation for a chat agent",
		Commands: []*cli.Command{
			botCommand(),
			migrateCommand(),
			exportCommand(),
		},
	}

	return app.Run(context.Background(), os.Args)
}
