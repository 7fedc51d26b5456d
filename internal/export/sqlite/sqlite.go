package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robalyx/retract/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const (
	// FileName is the name of the written database.
	FileName = "reviews.db"

	batchSize = 1000
)

// Exporter handles exporting review records to SQLite databases.
type Exporter struct {
	outDir string
}

// New creates a new SQLite exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes records to reviews.db, replacing any existing file, and
// returns its path.
func (e *Exporter) Export(records []*types.ExportRecord) (string, error) {
	path := filepath.Join(e.outDir, FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove existing file %s: %w", FileName, err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return "", fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	err = sqlitex.Execute(conn, `
		CREATE TABLE reviews (
			message_id TEXT PRIMARY KEY,
			user TEXT NOT NULL,
			status TEXT NOT NULL,
			type TEXT NOT NULL,
			theme TEXT NOT NULL,
			action TEXT NOT NULL,
			reason TEXT NOT NULL,
			reprocess_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create table: %w", err)
	}

	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		if err := insertBatch(conn, records[i:end]); err != nil {
			return "", err
		}
	}

	return path, nil
}

func insertBatch(conn *sqlite.Conn, records []*types.ExportRecord) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer endFn(&err)

	for _, record := range records {
		err = sqlitex.Execute(conn, `
			INSERT INTO reviews (message_id, user, status, type, theme, action, reason, reprocess_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, &sqlitex.ExecOptions{
			Args: []any{
				record.MessageID, record.User, record.Status, record.ContextType, record.Theme,
				record.Action, record.Reason, record.ReprocessCount, record.DeletedAt.UTC().Format(time.RFC3339),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	return nil
}
