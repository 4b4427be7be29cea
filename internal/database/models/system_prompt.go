package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/lumi/internal/database/dbretry"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// SystemPromptModel handles database operations for system prompts.
type SystemPromptModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewSystemPrompt creates a SystemPromptModel with database access.
func NewSystemPrompt(db *bun.DB, logger *zap.Logger) *SystemPromptModel {
	return &SystemPromptModel{
		db:     db,
		logger: logger.Named("db_system_prompt"),
	}
}

// GetPromptsWithTx returns the chat prompt with the given id and the judge prompt.
func (r *SystemPromptModel) GetPromptsWithTx(
	ctx context.Context, tx bun.IDB, chatPromptID int64,
) (chat *types.SystemPrompt, judge *types.SystemPrompt, err error) {
	var prompts []*types.SystemPrompt
	err = tx.NewSelect().
		Model(&prompts).
		Where("id IN (?)", bun.In([]int64{chatPromptID, types.JudgeSystemPromptID})).
		Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get system prompts: %w (promptID=%d)", err, chatPromptID)
	}

	for _, prompt := range prompts {
		if prompt.ID == chatPromptID {
			chat = prompt
		}
		if prompt.ID == types.JudgeSystemPromptID {
			judge = prompt
		}
	}

	if chat == nil {
		return nil, nil, fmt.Errorf("%w: chat prompt %d", sql.ErrNoRows, chatPromptID)
	}
	if judge == nil {
		return nil, nil, fmt.Errorf("%w: judge prompt %d", sql.ErrNoRows, types.JudgeSystemPromptID)
	}

	return chat, judge, nil
}

// GetByID retrieves a prompt by id. It returns nil when no such prompt exists.
func (r *SystemPromptModel) GetByID(ctx context.Context, id int64) (*types.SystemPrompt, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByName retrieves a prompt by name. It returns nil when no such prompt exists.
func (r *SystemPromptModel) GetByName(ctx context.Context, name string) (*types.SystemPrompt, error) {
	return r.getOne(ctx, "name = ?", name)
}

// List returns every prompt ordered by id.
func (r *SystemPromptModel) List(ctx context.Context) ([]*types.SystemPrompt, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.SystemPrompt, error) {
		var prompts []*types.SystemPrompt
		err := r.db.NewSelect().
			Model(&prompts).
			Order("id").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list system prompts: %w", err)
		}
		return prompts, nil
	})
}

// Upsert creates a prompt or replaces the contents of the prompt with the same name.
func (r *SystemPromptModel) Upsert(ctx context.Context, name, contents string) (*types.SystemPrompt, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.SystemPrompt, error) {
		prompt := &types.SystemPrompt{Name: name, Contents: contents}
		_, err := r.db.NewInsert().
			Model(prompt).
			On("CONFLICT (name) DO UPDATE").
			Set("contents = EXCLUDED.contents").
			Returning("id").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert system prompt: %w (name=%s)", err, name)
		}

		r.logger.Info("Saved system prompt", zap.String("name", name), zap.Int64("id", prompt.ID))
		return prompt, nil
	})
}

func (r *SystemPromptModel) getOne(ctx context.Context, where string, arg any) (*types.SystemPrompt, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.SystemPrompt, error) {
		var prompt types.SystemPrompt
		err := r.db.NewSelect().
			Model(&prompt).
			Where(where, arg).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get system prompt: %w", err)
		}
		return &prompt, nil
	})
}
