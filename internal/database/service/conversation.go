package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/database/dbretry"
	"github.com/robalyx/lumi/internal/database/models"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrNoSavepoint is returned when rolling back before a savepoint was created.
var ErrNoSavepoint = errors.New("no savepoint in conversation")

// ConversationService opens per-channel conversation transactions.
type ConversationService struct {
	db       *bun.DB
	channels *models.ChannelModel
	messages *models.MessageModel
	prompts  *models.SystemPromptModel
	logger   *zap.Logger
}

// NewConversation creates a new conversation service.
func NewConversation(
	db *bun.DB,
	channels *models.ChannelModel,
	messages *models.MessageModel,
	prompts *models.SystemPromptModel,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		db:       db,
		channels: channels,
		messages: messages,
		prompts:  prompts,
		logger:   logger.Named("conversation_service"),
	}
}

// Begin starts a transaction for a channel. The channel row is created if
// needed and stays locked until the transaction is committed or rolled back,
// so conversations in the same channel are handled one at a time.
func (s *ConversationService) Begin(ctx context.Context, channelID snowflake.ID) (*ConversationTx, error) {
	tx, err := dbretry.Begin(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.channels.EnsureChannelWithTx(ctx, tx, channelID); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	channel, err := s.channels.LockChannelWithTx(ctx, tx, channelID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return &ConversationTx{
		tx:      tx,
		channel: channel,
		service: s,
	}, nil
}

// respondSavepoint separates the inbound insert from the response writes.
const respondSavepoint = "lumi_respond"

// ConversationTx is an open transaction holding the lock on one channel.
type ConversationTx struct {
	tx      bun.Tx
	channel *types.Channel
	saved   *types.Channel
	service *ConversationService
}

// Channel returns the locked channel row as read at the start of the transaction.
func (t *ConversationTx) Channel() *types.Channel {
	return t.channel
}

// InsertMessage stores a message in the channel.
func (t *ConversationTx) InsertMessage(ctx context.Context, message *types.Message) error {
	return t.service.messages.InsertMessageWithTx(ctx, t.tx, message)
}

// WindowMessages returns the messages newer than the channel's context window.
func (t *ConversationTx) WindowMessages(ctx context.Context, allContext bool) ([]*types.Message, error) {
	return t.service.messages.GetWindowMessagesWithTx(ctx, t.tx, t.channel, allContext)
}

// AdvanceWindow moves the context window cutoff forward.
func (t *ConversationTx) AdvanceWindow(ctx context.Context, cutoff time.Time) error {
	if err := t.service.channels.AdvanceWindowWithTx(ctx, t.tx, t.channel.ID, cutoff); err != nil {
		return err
	}
	if cutoff.After(t.channel.ContextWindow) {
		t.channel.ContextWindow = cutoff
	}
	return nil
}

// Prompts returns the channel's chat prompt and the judge prompt.
func (t *ConversationTx) Prompts(ctx context.Context) (chat *types.SystemPrompt, judge *types.SystemPrompt, err error) {
	return t.service.prompts.GetPromptsWithTx(ctx, t.tx, t.channel.SystemPrompt)
}

// ResetContext moves the context window to the current time.
func (t *ConversationTx) ResetContext(ctx context.Context) error {
	return t.service.channels.ResetContextWithTx(ctx, t.tx, t.channel.ID)
}

// Savepoint marks the current state of the transaction.
func (t *ConversationTx) Savepoint(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+respondSavepoint); err != nil {
		return err
	}
	saved := *t.channel
	t.saved = &saved
	return nil
}

// RollbackToSavepoint discards everything written after Savepoint. Postgres
// accepts further statements afterwards even if one of them had failed.
func (t *ConversationTx) RollbackToSavepoint(ctx context.Context) error {
	if t.saved == nil {
		return ErrNoSavepoint
	}
	if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+respondSavepoint); err != nil {
		return err
	}
	*t.channel = *t.saved
	return nil
}

// Commit commits the transaction and releases the channel lock.
func (t *ConversationTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w (channelID=%d)", err, t.channel.ID)
	}
	return nil
}

// Rollback aborts the transaction. It is safe to call after Commit.
func (t *ConversationTx) Rollback() error {
	return t.tx.Rollback()
}
