package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/robalyx/retract/internal/export"
	"github.com/robalyx/retract/internal/setup"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/setup/telemetry"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/urfave/cli/v3"
)

var ErrInvalidHashType = errors.New("invalid hash type")

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export review records to json, csv and sqlite files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "exports",
				Usage:   "Base output directory for export files",
			},
			&cli.StringSliceFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   []string{string(export.FormatJSON), string(export.FormatCSV), string(export.FormatSQLite)},
				Usage:   "Formats to write (json, csv, sqlite)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Only export records of this user ID",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only export records with this review status",
			},
			&cli.BoolFlag{
				Name:  "anonymize",
				Usage: "Replace user IDs with salted hashes",
			},
			&cli.StringFlag{
				Name:    "salt",
				Aliases: []string{"s"},
				Usage:   "Salt for hashing IDs (random by default)",
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "Export description",
			},
			&cli.StringFlag{
				Name:    "hash-type",
				Aliases: []string{"t"},
				Value:   string(export.HashTypeSHA256),
				Usage:   "Hash algorithm to use (argon2id or sha256)",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"c"},
				Usage:   "Number of concurrent hash operations",
				Value:   4,
			},
			&cli.UintFlag{
				Name:    "iterations",
				Aliases: []string{"i"},
				Usage:   "Number of hash iterations",
			},
			&cli.UintFlag{
				Name:    "memory",
				Aliases: []string{"m"},
				Usage:   "Memory to use for Argon2id in MB",
			},
		},
		Action: runExport,
	}
}

func runExport(ctx context.Context, c *cli.Command) error {
	exportConfig, err := getExportConfig(c)
	if err != nil {
		return err
	}

	filter, err := getFilter(c)
	if err != nil {
		return err
	}

	formats := make([]export.Format, 0, len(c.StringSlice("format")))
	for _, name := range c.StringSlice("format") {
		format, err := export.ParseFormat(strings.ToLower(name))
		if err != nil {
			return err
		}

		formats = append(formats, format)
	}

	cfg, _, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logManager := telemetry.NewManager(telemetry.ServiceExport, ExportLogDir, &cfg.Common.Debug)

	_, storageLogger, err := logManager.GetLoggers()
	if err != nil {
		return err
	}
	defer storageLogger.Sync() //nolint:errcheck

	backend, err := setup.OpenStorage(ctx, &cfg.Common, storageLogger)
	if err != nil {
		return err
	}
	defer backend.Close()

	doc, err := backend.LoadReviews(ctx)
	if err != nil {
		return fmt.Errorf("failed to load review records: %w", err)
	}

	records := make([]*types.DeletedMessageReviewRecord, 0, len(doc.DeletedMessages))
	for _, record := range doc.DeletedMessages {
		if filter.Matches(record) {
			records = append(records, record)
		}
	}

	slices.SortFunc(records, func(a, b *types.DeletedMessageReviewRecord) int {
		return b.DeletedAt.Compare(a.DeletedAt)
	})

	// Create timestamped output directory
	outDir := filepath.Join(c.String("output"), time.Now().UTC().Format("2006-01-02_150405"))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	exporter := export.New(outDir, exportConfig)

	for _, format := range formats {
		files, err := exporter.Export(format, records)
		if err != nil {
			return err
		}

		log.Printf("Exported %d records as %s: %s", len(records), format, strings.Join(files, ", "))
	}

	return nil
}

func getExportConfig(c *cli.Command) (export.Config, error) {
	cfg := export.DefaultConfig()
	cfg.Anonymize = c.Bool("anonymize")
	cfg.Description = c.String("description")
	cfg.Concurrency = int(c.Int("concurrency"))

	if salt := c.String("salt"); salt != "" {
		cfg.Salt = salt
	}

	switch hashType := export.HashType(c.String("hash-type")); hashType {
	case export.HashTypeSHA256, export.HashTypeArgon2id:
		cfg.HashType = hashType
	default:
		return cfg, fmt.Errorf("%w: %s", ErrInvalidHashType, hashType)
	}

	if iterations := c.Uint("iterations"); iterations > 0 {
		cfg.Iterations = uint32(iterations) //nolint:gosec // -
	}

	if memory := c.Uint("memory"); memory > 0 {
		cfg.Memory = uint32(memory) //nolint:gosec // -
	}

	return cfg, nil
}

func getFilter(c *cli.Command) (types.ReviewFilter, error) {
	filter := types.ReviewFilter{UserID: c.String("user")}

	if value := c.String("status"); value != "" {
		status, err := enum.ReviewStatusString(value)
		if err != nil {
			return filter, fmt.Errorf("invalid status %q: %w", value, err)
		}

		filter.Status = &status
	}

	return filter, nil
}
