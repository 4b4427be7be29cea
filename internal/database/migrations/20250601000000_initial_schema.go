package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/lumi/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewCreateTable().
			Model((*types.SystemPrompt)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create system_prompts table: %w", err)
		}

		_, err = db.NewCreateTable().
			Model((*types.Channel)(nil)).
			IfNotExists().
			ForeignKey(`("system_prompt") REFERENCES "system_prompts" ("id")`).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create channels table: %w", err)
		}

		_, err = db.NewCreateTable().
			Model((*types.Message)(nil)).
			IfNotExists().
			ForeignKey(`("channel") REFERENCES "channels" ("id") ON DELETE CASCADE`).
			ForeignKey(`("reply") REFERENCES "messages" ("id") ON DELETE SET NULL`).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create messages table: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`DROP TABLE IF EXISTS messages, channels, system_prompts CASCADE`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}

		return nil
	})
}
