package models

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/database/dbretry"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// MessageModel handles database operations for stored chat messages.
type MessageModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMessage creates a MessageModel with database access.
func NewMessage(db *bun.DB, logger *zap.Logger) *MessageModel {
	return &MessageModel{
		db:     db,
		logger: logger.Named("db_message"),
	}
}

// InsertMessageWithTx stores a message. A reply pointing at a message that
// was never stored is saved as NULL.
func (r *MessageModel) InsertMessageWithTx(ctx context.Context, tx bun.IDB, message *types.Message) error {
	_, err := insertMessageQuery(tx, message).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w (messageID=%d)", err, message.ID)
	}
	return nil
}

// GetWindowMessagesWithTx returns the messages of a channel that are newer
// than its context window, oldest first. When allContext is false only
// messages that address Lumi are returned.
func (r *MessageModel) GetWindowMessagesWithTx(
	ctx context.Context, tx bun.IDB, channel *types.Channel, allContext bool,
) ([]*types.Message, error) {
	var messages []*types.Message
	err := windowMessagesQuery(tx, &messages, channel, allContext).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get window messages: %w (channelID=%d)", err, channel.ID)
	}
	return messages, nil
}

// GetChannelMessages returns every stored message of a channel, oldest first.
func (r *MessageModel) GetChannelMessages(ctx context.Context, channelID snowflake.ID) ([]*types.Message, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Message, error) {
		var messages []*types.Message
		err := channelMessagesQuery(r.db, &messages, channelID).Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get channel messages: %w (channelID=%d)", err, channelID)
		}
		return messages, nil
	})
}

func insertMessageQuery(db bun.IDB, message *types.Message) *bun.InsertQuery {
	query := db.NewInsert().Model(message)

	if message.Reply != nil {
		query = query.Value("reply", "(SELECT id FROM messages WHERE id = ?)", *message.Reply)
	}

	return query
}

func windowMessagesQuery(
	db bun.IDB, messages *[]*types.Message, channel *types.Channel, allContext bool,
) *bun.SelectQuery {
	query := db.NewSelect().
		Model(messages).
		ColumnExpr("m.*").
		ColumnExpr("rm.sender_name AS reply_sender_name").
		ColumnExpr("rm.contents AS reply_contents").
		Join("LEFT JOIN messages AS rm ON rm.id = m.reply").
		Where("m.channel = ?", channel.ID).
		Where("m.time > ?", channel.ContextWindow).
		OrderExpr("m.id ASC")

	if !allContext {
		query = query.Where("m.mentions_self")
	}

	return query
}

func channelMessagesQuery(db bun.IDB, messages *[]*types.Message, channelID snowflake.ID) *bun.SelectQuery {
	return db.NewSelect().
		Model(messages).
		ColumnExpr("m.*").
		ColumnExpr("rm.sender_name AS reply_sender_name").
		ColumnExpr("rm.contents AS reply_contents").
		Join("LEFT JOIN messages AS rm ON rm.id = m.reply").
		Where("m.channel = ?", channelID).
		OrderExpr("m.id ASC")
}
