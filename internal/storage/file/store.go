// Package file stores the moderation documents as JSON files in a data directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/robalyx/retract/internal/storage"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/pkg/utils"
	"go.uber.org/zap"
)

// File names of the persisted documents.
const (
	BlockedUsersFile    = "blocked_users.json"
	DeletionHistoryFile = "deletion_history.json"
	ReviewRecordsFile   = "deleted_messages.json"
	backupSuffix        = ".backup"
)

var errCorruptDocument = errors.New("document is not valid JSON")

// Store is a storage.Backend writing one JSON document per file.
type Store struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex // Serializes writes so backups always precede the file they protect
}

// NewStore creates the data directory if needed and returns a Store rooted at it.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory: %w", storage.ErrPersistence, err)
	}

	return &Store{
		dir:    dir,
		logger: logger.Named("file_store"),
	}, nil
}

// LoadBlocked reads the blocked users document.
func (s *Store) LoadBlocked(_ context.Context) (*types.BlockedUsersDocument, error) {
	doc := types.NewBlockedUsersDocument()
	s.load(BlockedUsersFile, doc)

	if doc.BlockedUserIDs == nil {
		doc.BlockedUserIDs = []string{}
	}

	return doc, nil
}

// SaveBlocked replaces the blocked users document.
func (s *Store) SaveBlocked(_ context.Context, doc *types.BlockedUsersDocument) error {
	return s.save(BlockedUsersFile, doc)
}

// LoadHistory reads the deletion history document.
func (s *Store) LoadHistory(_ context.Context) (*types.DeletionHistoryDocument, error) {
	doc := types.NewDeletionHistoryDocument()
	s.load(DeletionHistoryFile, doc)

	if doc.Deletions == nil {
		doc.Deletions = make(map[string][]*types.DeletionRecord)
	}

	if doc.RapidDeletions == nil {
		doc.RapidDeletions = make(map[string][]*types.DeletionRecord)
	}

	for _, records := range doc.RapidDeletions {
		for _, record := range records {
			record.Rapid = true
		}
	}

	return doc, nil
}

// SaveHistory replaces the deletion history document.
func (s *Store) SaveHistory(_ context.Context, doc *types.DeletionHistoryDocument) error {
	return s.save(DeletionHistoryFile, doc)
}

// LoadReviews reads the review records document.
func (s *Store) LoadReviews(_ context.Context) (*types.ReviewDocument, error) {
	doc := types.NewReviewDocument()
	s.load(ReviewRecordsFile, doc)

	if doc.DeletedMessages == nil {
		doc.DeletedMessages = make(map[string]*types.DeletedMessageReviewRecord)
	}

	return doc, nil
}

// SaveReviews replaces the review records document.
func (s *Store) SaveReviews(_ context.Context, doc *types.ReviewDocument) error {
	return s.save(ReviewRecordsFile, doc)
}

// Close implements storage.Backend.
func (s *Store) Close() error {
	return nil
}

// load decodes a document, falling back to its backup and then to the empty document.
func (s *Store) load(name string, v any) {
	path := filepath.Join(s.dir, name)

	err := decodeFile(path, v)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}

	s.logger.Warn("Failed to read document, trying backup",
		zap.String("file", name),
		zap.Error(err))

	if err := decodeFile(path+backupSuffix, v); err != nil {
		s.logger.Warn("Failed to read backup, starting empty",
			zap.String("file", name+backupSuffix),
			zap.Error(err))
	}
}

// save writes a document atomically, keeping the previous version as a backup.
// If the atomic write fails, one direct write is attempted before giving up.
func (s *Store) save(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s: %w", storage.ErrPersistence, name, err)
	}

	path := filepath.Join(s.dir, name)

	if previous, err := os.ReadFile(path); err == nil {
		if err := utils.WriteFileAtomic(path+backupSuffix, previous, 0o644); err != nil {
			s.logger.Warn("Failed to write backup", zap.String("file", name), zap.Error(err))
		}
	}

	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		s.logger.Error("Atomic write failed, attempting direct write",
			zap.String("file", name),
			zap.Error(err))

		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("%w: failed to write %s: %w", storage.ErrPersistence, name, err)
		}
	}

	return nil
}

func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	if !sonic.Valid(data) {
		return errCorruptDocument
	}

	return sonic.Unmarshal(data, v)
}
