package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/ai"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/robalyx/lumi/internal/database/types/enum"
	"go.uber.org/zap"
)

// typingInterval is how often the typing indicator is refreshed. Discord
// clears it after roughly ten seconds.
const typingInterval = 8 * time.Second

// Engine stores inbound messages and answers them when appropriate.
type Engine struct {
	store     Store
	decider   Decider
	generator Generator
	sender    Sender
	config    ai.ConfigSource
	logger    *zap.Logger
}

// NewEngine creates a new conversation engine.
func NewEngine(
	store Store, decider Decider, generator Generator, sender Sender, cfg ai.ConfigSource, logger *zap.Logger,
) *Engine {
	return &Engine{
		store:     store,
		decider:   decider,
		generator: generator,
		sender:    sender,
		config:    cfg,
		logger:    logger.Named("chat_engine"),
	}
}

// HandleMessage stores an inbound message and replies to it if Lumi was
// addressed or the channel allows free responses and the judge agrees.
// MentionsSelf on the message marks it as addressed. The inbound row and the
// reply row are committed together. A failed response is rolled back to a
// savepoint taken after the inbound insert and reported as a reply, so the
// inbound row is still committed.
func (e *Engine) HandleMessage(ctx context.Context, message *types.Message) error {
	if message == nil {
		return ErrNilMessage
	}

	tx, err := e.store.Begin(ctx, message.Channel)
	if err != nil {
		return fmt.Errorf("failed to begin conversation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.InsertMessage(ctx, message); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	mode := tx.Channel().ChatMode
	if message.MentionsSelf || mode == enum.ChatModeFreeResponse {
		if err := tx.Savepoint(ctx); err != nil {
			return fmt.Errorf("failed to create savepoint: %w", err)
		}

		if err := e.respond(ctx, tx, message, mode); err != nil {
			e.logger.Error("Failed to respond to message",
				zap.Error(err),
				zap.Uint64("channelID", uint64(message.Channel)),
				zap.Uint64("messageID", uint64(message.ID)))

			if rbErr := tx.RollbackToSavepoint(ctx); rbErr != nil {
				return fmt.Errorf("failed to discard response: %w", rbErr)
			}
			e.reportError(ctx, message, err)
		}
	}

	return tx.Commit()
}

// ResetContext drops everything currently in a channel's context window.
func (e *Engine) ResetContext(ctx context.Context, channelID snowflake.ID) error {
	tx, err := e.store.Begin(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to begin conversation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ResetContext(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	e.logger.Info("Reset context", zap.Uint64("channelID", uint64(channelID)))
	return nil
}

// respond builds the prompts, asks the judge when Lumi was not addressed and
// sends a generated reply.
func (e *Engine) respond(ctx context.Context, tx Tx, message *types.Message, mode enum.ChatMode) error {
	cfg := e.config.Get()

	window, err := SelectWindow(ctx, tx, mode.IncludesAllContext(), cfg.Bot.Chat.WindowThreshold)
	if err != nil {
		return err
	}

	chatPrompt, judgePrompt, err := tx.Prompts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load system prompts: %w", err)
	}
	contexts := BuildContexts(chatPrompt.Contents, judgePrompt.Contents, window)

	if !message.MentionsSelf {
		shouldReply, err := e.decider.ShouldReply(ctx, contexts.Judge)
		if err != nil {
			return err
		}
		if !shouldReply {
			return nil
		}
	}

	stopTyping := e.startTyping(ctx, message.Channel)
	defer stopTyping()

	content, err := e.generator.Generate(ctx, contexts.Chat)
	if err != nil {
		return err
	}
	if content == "" {
		e.logger.Debug("Model returned an empty reply",
			zap.Uint64("channelID", uint64(message.Channel)))
		return nil
	}

	sent, err := e.sender.Reply(ctx, message.Channel, message.ID, content)
	if err != nil {
		e.logger.Warn("Failed to send reply",
			zap.Error(err),
			zap.Uint64("channelID", uint64(message.Channel)),
			zap.Uint64("messageID", uint64(message.ID)))
		return nil
	}
	stopTyping()

	replyTo := message.ID
	reply := &types.Message{
		ID:                sent.ID,
		IsSelf:            true,
		MentionsSelf:      true,
		Sender:            sent.Author.ID,
		SenderName:        sent.Author.Name,
		SenderDisplayName: sent.Author.DisplayName,
		Guild:             message.Guild,
		Channel:           message.Channel,
		Contents:          sent.Content,
		Reply:             &replyTo,
	}
	if err := tx.InsertMessage(ctx, reply); err != nil {
		return fmt.Errorf("failed to store reply: %w", err)
	}

	return nil
}

// startTyping keeps the typing indicator alive until the returned function is called.
func (e *Engine) startTyping(ctx context.Context, channelID snowflake.ID) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()

		for {
			if err := e.sender.Typing(ctx, channelID); err != nil && ctx.Err() == nil {
				e.logger.Debug("Failed to send typing indicator",
					zap.Error(err),
					zap.Uint64("channelID", uint64(channelID)))
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		<-done
	}
}

// reportError posts a failure notice as a reply to the triggering message.
// The notice is not stored.
func (e *Engine) reportError(ctx context.Context, message *types.Message, cause error) {
	content := fmt.Sprintf("Encountered an error:\n```\n%s\n```", cause)
	if _, err := e.sender.Reply(ctx, message.Channel, message.ID, content); err != nil {
		e.logger.Error("Failed to report error",
			zap.Error(err),
			zap.NamedError("cause", cause),
			zap.Uint64("channelID", uint64(message.Channel)),
			zap.Uint64("messageID", uint64(message.ID)))
	}
}
