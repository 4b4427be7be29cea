package bot

import (
	"context"
	"slices"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/database/types"
	"go.uber.org/zap"
)

// handleMessageCreate queues an inbound message for processing.
func (b *Bot) handleMessageCreate(event *events.MessageCreate) {
	msg := event.Message
	if msg.Author.Bot {
		return
	}

	b.submit("message", func(ctx context.Context) {
		b.processMessage(ctx, msg)
	})
}

// processMessage handles a message from a human author.
func (b *Bot) processMessage(ctx context.Context, msg discord.Message) {
	if !b.claimer.Claim(ctx, msg.ID) {
		return
	}

	if isResetTrigger(msg.Content, b.config.Get().Bot.Chat.ResetTrigger) {
		b.resetFromTrigger(ctx, msg)
		return
	}

	message := toMessage(msg, b.client.ID(), b.lookup)
	if err := b.engine.HandleMessage(ctx, message); err != nil {
		b.logger.Error("Failed to handle message",
			zap.Error(err),
			zap.Uint64("channelID", uint64(msg.ChannelID)),
			zap.Uint64("messageID", uint64(msg.ID)))
	}
}

// resetFromTrigger clears the channel context and confirms it.
func (b *Bot) resetFromTrigger(ctx context.Context, msg discord.Message) {
	if err := b.engine.ResetContext(ctx, msg.ChannelID); err != nil {
		b.logger.Error("Failed to reset context",
			zap.Error(err),
			zap.Uint64("channelID", uint64(msg.ChannelID)))
		return
	}

	if _, err := b.sender.Reply(ctx, msg.ChannelID, msg.ID, "Reset context!"); err != nil {
		b.logger.Warn("Failed to confirm context reset",
			zap.Error(err),
			zap.Uint64("channelID", uint64(msg.ChannelID)))
	}
}

// isResetTrigger reports whether content is exactly the configured trigger.
// An empty trigger disables the feature.
func isResetTrigger(content, trigger string) bool {
	return trigger != "" && strings.TrimSpace(content) == trigger
}

// toMessage converts a Discord message into a stored message row.
func toMessage(msg discord.Message, selfID snowflake.ID, lookup nameLookup) *types.Message {
	message := &types.Message{
		ID:                msg.ID,
		IsSelf:            msg.Author.ID == selfID,
		MentionsSelf:      addressesSelf(msg, selfID),
		Sender:            msg.Author.ID,
		SenderName:        msg.Author.Username,
		SenderDisplayName: msg.Author.EffectiveName(),
		Guild:             msg.GuildID,
		Channel:           msg.ChannelID,
		Contents:          sanitizeContent(msg, lookup),
	}

	if msg.ReferencedMessage != nil {
		replyTo := msg.ReferencedMessage.ID
		message.Reply = &replyTo
	}

	return message
}

// addressesSelf reports whether a message is a DM or mentions the bot user.
func addressesSelf(msg discord.Message, selfID snowflake.ID) bool {
	if msg.GuildID == nil {
		return true
	}
	return slices.ContainsFunc(msg.Mentions, func(user discord.User) bool {
		return user.ID == selfID
	})
}
