package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/database/dbretry"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/robalyx/lumi/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ChannelModel handles database operations for channel settings.
type ChannelModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewChannel creates a ChannelModel with database access.
func NewChannel(db *bun.DB, logger *zap.Logger) *ChannelModel {
	return &ChannelModel{
		db:     db,
		logger: logger.Named("db_channel"),
	}
}

// newChannel returns a channel row populated with the defaults for first contact.
func newChannel(channelID snowflake.ID) *types.Channel {
	return &types.Channel{
		ID:           channelID,
		ChatMode:     enum.DefaultChatMode,
		SystemPrompt: types.DefaultSystemPromptID,
	}
}

// EnsureChannelWithTx creates the channel row if it does not exist yet.
func (r *ChannelModel) EnsureChannelWithTx(ctx context.Context, tx bun.IDB, channelID snowflake.ID) error {
	_, err := ensureChannelQuery(tx, channelID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure channel: %w (channelID=%d)", err, channelID)
	}
	return nil
}

// LockChannelWithTx reads the channel row and holds a row lock on it until
// the transaction ends.
func (r *ChannelModel) LockChannelWithTx(
	ctx context.Context, tx bun.IDB, channelID snowflake.ID,
) (*types.Channel, error) {
	var channel types.Channel
	err := lockChannelQuery(tx, &channel, channelID).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock channel: %w (channelID=%d)", err, channelID)
	}
	return &channel, nil
}

// AdvanceWindowWithTx moves the channel's context window to the given cutoff.
// The cutoff never moves backwards.
func (r *ChannelModel) AdvanceWindowWithTx(
	ctx context.Context, tx bun.IDB, channelID snowflake.ID, cutoff time.Time,
) error {
	_, err := advanceWindowQuery(tx, channelID, cutoff).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to advance context window: %w (channelID=%d)", err, channelID)
	}

	r.logger.Debug("Advanced context window",
		zap.Uint64("channelID", uint64(channelID)),
		zap.Time("cutoff", cutoff))

	return nil
}

// GetChannel retrieves a channel. It returns nil when the channel has never been seen.
func (r *ChannelModel) GetChannel(ctx context.Context, channelID snowflake.ID) (*types.Channel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Channel, error) {
		var channel types.Channel
		err := r.db.NewSelect().
			Model(&channel).
			Where("id = ?", channelID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to get channel: %w (channelID=%d)", err, channelID)
		}
		return &channel, nil
	})
}

// SetChatMode updates the chat mode of a channel, creating the channel if needed.
func (r *ChannelModel) SetChatMode(ctx context.Context, channelID snowflake.ID, mode enum.ChatMode) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		channel := newChannel(channelID)
		channel.ChatMode = mode

		_, err := r.db.NewInsert().
			Model(channel).
			Column("id", "chat_mode", "system_prompt").
			On("CONFLICT (id) DO UPDATE").
			Set("chat_mode = EXCLUDED.chat_mode").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set chat mode: %w (channelID=%d)", err, channelID)
		}
		return nil
	})
}

// SetSystemPrompt points a channel at a system prompt, creating the channel if needed.
func (r *ChannelModel) SetSystemPrompt(ctx context.Context, channelID snowflake.ID, promptID int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		channel := newChannel(channelID)
		channel.SystemPrompt = promptID

		_, err := r.db.NewInsert().
			Model(channel).
			Column("id", "chat_mode", "system_prompt").
			On("CONFLICT (id) DO UPDATE").
			Set("system_prompt = EXCLUDED.system_prompt").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set system prompt: %w (channelID=%d)", err, channelID)
		}
		return nil
	})
}

// ResetContext moves the channel's context window to the current time so that
// all earlier messages leave the conversation context.
func (r *ChannelModel) ResetContext(ctx context.Context, channelID snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return r.ResetContextWithTx(ctx, r.db, channelID)
	})
}

// ResetContextWithTx is ResetContext within an existing transaction.
func (r *ChannelModel) ResetContextWithTx(ctx context.Context, tx bun.IDB, channelID snowflake.ID) error {
	_, err := resetContextQuery(tx, channelID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset context: %w (channelID=%d)", err, channelID)
	}
	return nil
}

func ensureChannelQuery(db bun.IDB, channelID snowflake.ID) *bun.InsertQuery {
	return db.NewInsert().
		Model(newChannel(channelID)).
		Column("id", "chat_mode", "system_prompt").
		On("CONFLICT (id) DO NOTHING")
}

func lockChannelQuery(db bun.IDB, channel *types.Channel, channelID snowflake.ID) *bun.SelectQuery {
	return db.NewSelect().
		Model(channel).
		Where("id = ?", channelID).
		For("UPDATE")
}

func advanceWindowQuery(db bun.IDB, channelID snowflake.ID, cutoff time.Time) *bun.UpdateQuery {
	return db.NewUpdate().
		Model((*types.Channel)(nil)).
		Set("context_window = GREATEST(context_window, ?)", cutoff).
		Where("id = ?", channelID)
}

// resetContextQuery uses clock_timestamp() to match the message time default.
func resetContextQuery(db bun.IDB, channelID snowflake.ID) *bun.UpdateQuery {
	return db.NewUpdate().
		Model((*types.Channel)(nil)).
		Set("context_window = GREATEST(context_window, clock_timestamp())").
		Where("id = ?", channelID)
}
