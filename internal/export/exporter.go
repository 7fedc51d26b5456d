// Package export writes review records to files for offline analysis.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/robalyx/retract/internal/export/csv"
	"github.com/robalyx/retract/internal/export/json"
	"github.com/robalyx/retract/internal/export/sqlite"
	"github.com/robalyx/retract/internal/export/types"
	dbTypes "github.com/robalyx/retract/internal/types"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format represents a supported export format.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

const (
	// EngineVersion represents the version of the export engine.
	// This should be updated when making breaking changes to the export format.
	EngineVersion = "1.0.0"

	// ConfigFileName is written next to anonymized exports.
	ConfigFileName = "export_config.json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatCSV, FormatSQLite:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Config holds the configuration for exports.
type Config struct {
	ExportVersion string   `json:"exportVersion"`
	Salt          string   `json:"salt"`
	Description   string   `json:"description"`
	HashType      HashType `json:"hashType"`
	Iterations    uint32   `json:"iterations"`
	Memory        uint32   `json:"memory,omitempty"`
	Anonymize     bool     `json:"anonymize"`
	Concurrency   int      `json:"-"`
}

// DefaultConfig returns a SHA256 configuration with a fresh salt.
func DefaultConfig() Config {
	return Config{
		ExportVersion: time.Now().UTC().Format("2006.01.02"),
		Salt:          uuid.NewString(),
		HashType:      HashTypeSHA256,
		Iterations:    1000,
		Concurrency:   4,
	}
}

// Exporter handles exporting review records.
type Exporter struct {
	outDir string
	config Config
}

// New creates a new exporter instance writing into outDir.
func New(outDir string, config Config) *Exporter {
	if config.Anonymize && config.Salt == "" {
		config.Salt = uuid.NewString()
	}

	if config.HashType == "" {
		config.HashType = HashTypeSHA256
	}

	if config.Iterations == 0 {
		config.Iterations = 1
	}

	return &Exporter{outDir: outDir, config: config}
}

// Export writes records in format and returns the paths of every written
// file. Anonymized exports also write the export configuration.
func (e *Exporter) Export(format Format, records []*dbTypes.DeletedMessageReviewRecord) ([]string, error) {
	if err := os.MkdirAll(e.outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	rows := e.toExportRecords(records)

	var exporter interface {
		Export(records []*types.ExportRecord) (string, error)
	}

	switch format {
	case FormatJSON:
		exporter = json.New(e.outDir)
	case FormatCSV:
		exporter = csv.New(e.outDir)
	case FormatSQLite:
		exporter = sqlite.New(e.outDir)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	path, err := exporter.Export(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to export %s format: %w", format, err)
	}

	files := []string{path}

	if e.config.Anonymize {
		configPath, err := e.writeConfig()
		if err != nil {
			return nil, err
		}

		files = append(files, configPath)
	}

	return files, nil
}

// toExportRecords converts review records to export rows, hashing user IDs
// concurrently when anonymizing.
func (e *Exporter) toExportRecords(records []*dbTypes.DeletedMessageReviewRecord) []*types.ExportRecord {
	users := make([]string, len(records))
	for i, record := range records {
		users[i] = record.UserID
	}

	if e.config.Anonymize {
		users = hashUserIDs(users, e.config.Salt, e.config.HashType, e.config.Concurrency, e.config.Iterations, e.config.Memory)
	}

	rows := make([]*types.ExportRecord, len(records))

	for i, record := range records {
		row := &types.ExportRecord{
			MessageID:      record.MessageID,
			User:           users[i],
			Status:         record.Status.String(),
			Action:         record.AppliedAction.String(),
			Reason:         record.ReasonCode,
			ReprocessCount: record.ReprocessCount,
			DeletedAt:      record.DeletedAt,
		}

		if ctx := record.EnhancedContext; ctx != nil {
			row.ContextType = ctx.Type.String()
			row.Theme = string(ctx.Theme)
		}

		rows[i] = row
	}

	return rows
}

func (e *Exporter) writeConfig() (string, error) {
	jsonConfig := struct {
		*Config

		EngineVersion string `json:"engineVersion"`
	}{
		Config:        &e.config,
		EngineVersion: EngineVersion,
	}

	configData, err := sonic.MarshalIndent(jsonConfig, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export config: %w", err)
	}

	path := filepath.Join(e.outDir, ConfigFileName)
	if err := os.WriteFile(path, configData, 0o600); err != nil {
		return "", fmt.Errorf("failed to write export config: %w", err)
	}

	return path, nil
}
