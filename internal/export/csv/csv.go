package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robalyx/retract/internal/export/types"
)

// FileName is the name of the written file.
const FileName = "reviews.csv"

// Exporter handles exporting review records to csv files.
type Exporter struct {
	outDir string
}

// New creates a new csv exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes records to reviews.csv, replacing any existing file, and
// returns its path.
func (e *Exporter) Export(records []*types.ExportRecord) (string, error) {
	path := filepath.Join(e.outDir, FileName)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(types.Columns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write([]string{
			record.MessageID,
			record.User,
			record.Status,
			record.ContextType,
			record.Theme,
			record.Action,
			record.Reason,
			strconv.Itoa(record.ReprocessCount),
			record.DeletedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return "", fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv file: %w", err)
	}

	return path, nil
}
