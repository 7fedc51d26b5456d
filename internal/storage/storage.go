// Package storage defines the persistence port shared by the moderation stores.
package storage

import (
	"context"
	"errors"

	"github.com/robalyx/retract/internal/types"
)

// ErrPersistence wraps every failure to durably write a document.
var ErrPersistence = errors.New("persistence failure")

// Backend loads and replaces the three persisted documents.
// Loads of missing data return empty documents, never nil.
type Backend interface {
	LoadBlocked(ctx context.Context) (*types.BlockedUsersDocument, error)
	SaveBlocked(ctx context.Context, doc *types.BlockedUsersDocument) error
	LoadHistory(ctx context.Context) (*types.DeletionHistoryDocument, error)
	SaveHistory(ctx context.Context, doc *types.DeletionHistoryDocument) error
	LoadReviews(ctx context.Context) (*types.ReviewDocument, error)
	SaveReviews(ctx context.Context, doc *types.ReviewDocument) error
	Close() error
}
