package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/retract/internal/database/dbretry"
	"github.com/robalyx/retract/internal/storage"
	"github.com/robalyx/retract/internal/types"
	"github.com/uptrace/bun"
)

// ErrUnsupportedBackend is returned when the storage backend is not a database.
var ErrUnsupportedBackend = errors.New("unsupported database backend")

// Document names stored in DocumentMeta.
const (
	documentBlocked = "blocked_users"
	documentHistory = "deletion_history"
	documentReviews = "review_records"
)

// LoadBlocked reads the blocked user set.
func (c *Client) LoadBlocked(ctx context.Context) (*types.BlockedUsersDocument, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.BlockedUsersDocument, error) {
		var rows []types.BlockedUser
		if err := c.db.NewSelect().Model(&rows).Order("blocked_at ASC", "user_id ASC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to load blocked users: %w", err)
		}

		doc := types.NewBlockedUsersDocument()
		for _, row := range rows {
			doc.BlockedUserIDs = append(doc.BlockedUserIDs, row.UserID)
		}

		doc.LastUpdated = c.lastUpdated(ctx, documentBlocked)

		return doc, nil
	})
}

// SaveBlocked replaces the blocked user set, keeping the original block time of users that stay blocked.
func (c *Client) SaveBlocked(ctx context.Context, doc *types.BlockedUsersDocument) error {
	err := dbretry.Transaction(ctx, c.db, func(ctx context.Context, tx bun.Tx) error {
		del := tx.NewDelete().Model((*types.BlockedUser)(nil))
		if len(doc.BlockedUserIDs) > 0 {
			del = del.Where("user_id NOT IN (?)", bun.In(doc.BlockedUserIDs))
		} else {
			del = del.Where("1 = 1")
		}

		if _, err := del.Exec(ctx); err != nil {
			return err
		}

		if len(doc.BlockedUserIDs) > 0 {
			rows := make([]types.BlockedUser, 0, len(doc.BlockedUserIDs))
			for _, id := range doc.BlockedUserIDs {
				rows = append(rows, types.BlockedUser{UserID: id, BlockedAt: stamp(doc.LastUpdated)})
			}

			if _, err := tx.NewInsert().Model(&rows).On("CONFLICT (user_id) DO NOTHING").Exec(ctx); err != nil {
				return err
			}
		}

		return touch(ctx, tx, documentBlocked, doc.LastUpdated)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save blocked users: %w", storage.ErrPersistence, err)
	}

	return nil
}

// LoadHistory reads every deletion record, preserving insertion order per user.
func (c *Client) LoadHistory(ctx context.Context) (*types.DeletionHistoryDocument, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.DeletionHistoryDocument, error) {
		var rows []*types.DeletionRecord
		if err := c.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to load deletion history: %w", err)
		}

		doc := types.NewDeletionHistoryDocument()
		for _, record := range rows {
			doc.Deletions[record.UserID] = append(doc.Deletions[record.UserID], record)
			if record.Rapid {
				doc.RapidDeletions[record.UserID] = append(doc.RapidDeletions[record.UserID], record)
			}
		}

		doc.LastUpdated = c.lastUpdated(ctx, documentHistory)

		return doc, nil
	})
}

// SaveHistory replaces every deletion record with the contents of doc.
func (c *Client) SaveHistory(ctx context.Context, doc *types.DeletionHistoryDocument) error {
	rows := historyRows(doc)

	err := dbretry.Transaction(ctx, c.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*types.DeletionRecord)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return err
		}

		if len(rows) > 0 {
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return err
			}
		}

		return touch(ctx, tx, documentHistory, doc.LastUpdated)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save deletion history: %w", storage.ErrPersistence, err)
	}

	return nil
}

// LoadReviews reads every review record.
func (c *Client) LoadReviews(ctx context.Context) (*types.ReviewDocument, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ReviewDocument, error) {
		var rows []*types.DeletedMessageReviewRecord
		if err := c.db.NewSelect().Model(&rows).Order("deleted_at ASC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to load review records: %w", err)
		}

		doc := types.NewReviewDocument()
		for _, record := range rows {
			doc.DeletedMessages[record.MessageID] = record
		}

		doc.LastUpdated = c.lastUpdated(ctx, documentReviews)

		return doc, nil
	})
}

// SaveReviews replaces every review record with the contents of doc.
func (c *Client) SaveReviews(ctx context.Context, doc *types.ReviewDocument) error {
	rows := make([]types.DeletedMessageReviewRecord, 0, len(doc.DeletedMessages))
	for _, record := range doc.DeletedMessages {
		rows = append(rows, *record)
	}

	err := dbretry.Transaction(ctx, c.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*types.DeletedMessageReviewRecord)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return err
		}

		if len(rows) > 0 {
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return err
			}
		}

		return touch(ctx, tx, documentReviews, doc.LastUpdated)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save review records: %w", storage.ErrPersistence, err)
	}

	return nil
}

// lastUpdated returns the stored replace time of a document, or the zero time.
func (c *Client) lastUpdated(ctx context.Context, name string) time.Time {
	var meta types.DocumentMeta
	if err := c.db.NewSelect().Model(&meta).Where("name = ?", name).Scan(ctx); err != nil {
		return time.Time{}
	}

	return meta.LastUpdated
}

// touch records the replace time of a document inside the saving transaction.
func touch(ctx context.Context, tx bun.Tx, name string, at time.Time) error {
	meta := &types.DocumentMeta{Name: name, LastUpdated: stamp(at)}
	_, err := tx.NewInsert().
		Model(meta).
		On("CONFLICT (name) DO UPDATE").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)

	return err
}

// historyRows copies the records so inserts never write generated IDs into shared state.
func historyRows(doc *types.DeletionHistoryDocument) []types.DeletionRecord {
	type key struct{ userID, messageID string }

	rapid := make(map[key]struct{})
	for userID, records := range doc.RapidDeletions {
		for _, record := range records {
			rapid[key{userID, record.MessageID}] = struct{}{}
		}
	}

	var rows []types.DeletionRecord
	for userID, records := range doc.Deletions {
		for _, record := range records {
			row := *record
			row.ID = 0
			row.UserID = userID
			_, row.Rapid = rapid[key{userID, record.MessageID}]
			rows = append(rows, row)
		}
	}

	return rows
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}

	return t.UTC()
}

var _ storage.Backend = (*Client)(nil)
