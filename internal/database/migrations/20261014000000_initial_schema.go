package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/retract/internal/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.BlockedUser)(nil),
			(*types.DocumentMeta)(nil),
			(*types.DeletionRecord)(nil),
			(*types.DeletedMessageReviewRecord)(nil),
		}

		for _, model := range models {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		indexes := []struct {
			model   any
			name    string
			columns []string
		}{
			{(*types.DeletionRecord)(nil), "idx_deletion_records_user_time", []string{"user_id", "timestamp"}},
			{(*types.DeletedMessageReviewRecord)(nil), "idx_review_records_status", []string{"status"}},
			{(*types.DeletedMessageReviewRecord)(nil), "idx_review_records_user", []string{"user_id", "deleted_at"}},
		}

		for _, index := range indexes {
			_, err := db.NewCreateIndex().
				Model(index.model).
				Index(index.name).
				Column(index.columns...).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create index %s: %w", index.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.DeletedMessageReviewRecord)(nil),
			(*types.DeletionRecord)(nil),
			(*types.DocumentMeta)(nil),
			(*types.BlockedUser)(nil),
		}

		for _, model := range models {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
