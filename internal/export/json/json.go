package json

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/robalyx/retract/internal/export/types"
)

// FileName is the name of the written file.
const FileName = "reviews.json"

// Exporter handles exporting review records to an indented JSON array.
type Exporter struct {
	outDir string
}

// New creates a new JSON exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes records to reviews.json and returns its path.
func (e *Exporter) Export(records []*types.ExportRecord) (string, error) {
	if records == nil {
		records = []*types.ExportRecord{}
	}

	data, err := sonic.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}

	path := filepath.Join(e.outDir, FileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write json file: %w", err)
	}

	return path, nil
}
