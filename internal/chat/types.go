package chat

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/ai"
	"github.com/robalyx/lumi/internal/database/types"
)

// ErrNilMessage is returned when a nil message is handed to the engine.
var ErrNilMessage = errors.New("message is nil")

// Tx is an open conversation transaction holding the lock on one channel.
type Tx interface {
	Channel() *types.Channel
	InsertMessage(ctx context.Context, message *types.Message) error
	WindowMessages(ctx context.Context, allContext bool) ([]*types.Message, error)
	AdvanceWindow(ctx context.Context, cutoff time.Time) error
	Prompts(ctx context.Context) (chat *types.SystemPrompt, judge *types.SystemPrompt, err error)
	ResetContext(ctx context.Context) error
	// Savepoint marks the current state so a failed response can be
	// discarded without losing earlier writes.
	Savepoint(ctx context.Context) error
	// RollbackToSavepoint discards writes made after Savepoint and makes
	// the transaction usable again after a failed statement.
	RollbackToSavepoint(ctx context.Context) error
	Commit() error
	Rollback() error
}

// Store opens conversation transactions.
type Store interface {
	Begin(ctx context.Context, channelID snowflake.ID) (Tx, error)
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, channelID snowflake.ID) (Tx, error)

// Begin calls f(ctx, channelID).
func (f StoreFunc) Begin(ctx context.Context, channelID snowflake.ID) (Tx, error) {
	return f(ctx, channelID)
}

// Author identifies who sent a message on the platform.
type Author struct {
	ID          snowflake.ID
	Name        string
	DisplayName string
}

// SentMessage is a message the platform accepted from Lumi.
type SentMessage struct {
	ID     snowflake.ID
	Author Author
	// Content is the sanitized text as it should be stored.
	Content string
}

// Sender delivers messages to the chat platform.
type Sender interface {
	// Reply sends content as a reply to another message with mentions suppressed.
	Reply(ctx context.Context, channelID, replyTo snowflake.ID, content string) (*SentMessage, error)
	// Typing shows the typing indicator in a channel.
	Typing(ctx context.Context, channelID snowflake.ID) error
}

// Decider decides whether Lumi should answer a conversation.
type Decider interface {
	ShouldReply(ctx context.Context, messages []ai.Message) (bool, error)
}

// Generator produces reply text for a conversation.
type Generator interface {
	Generate(ctx context.Context, messages []ai.Message) (string, error)
}
