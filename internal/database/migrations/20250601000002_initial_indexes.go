package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- Window selection scans a channel's messages in id order
			CREATE INDEX IF NOT EXISTS idx_messages_channel_id
			ON messages (channel, id);

			CREATE INDEX IF NOT EXISTS idx_messages_channel_time
			ON messages (channel, time);

			CREATE INDEX IF NOT EXISTS idx_messages_reply
			ON messages (reply)
			WHERE reply IS NOT NULL;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_messages_channel_id;
			DROP INDEX IF EXISTS idx_messages_channel_time;
			DROP INDEX IF EXISTS idx_messages_reply;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop indexes: %w", err)
		}

		return nil
	})
}
