package bot

import (
	"context"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// deleteEmoji removes one of Lumi's messages when reacted with.
const deleteEmoji = "❌"

// handleReactionAdd deletes Lumi's message when someone reacts with the delete emoji.
func (b *Bot) handleReactionAdd(event *events.MessageReactionAdd) {
	if event.Emoji.Name == nil || *event.Emoji.Name != deleteEmoji {
		return
	}

	channelID, messageID := event.ChannelID, event.MessageID
	b.submit("reaction", func(ctx context.Context) {
		b.deleteOwnMessage(ctx, channelID, messageID)
	})
}

// deleteOwnMessage deletes a message if Lumi authored it.
func (b *Bot) deleteOwnMessage(ctx context.Context, channelID, messageID snowflake.ID) {
	msg, err := b.client.Rest().GetMessage(channelID, messageID, rest.WithCtx(ctx))
	if err != nil {
		b.logger.Error("Failed to fetch reacted message",
			zap.Error(err),
			zap.Uint64("channelID", uint64(channelID)),
			zap.Uint64("messageID", uint64(messageID)))
		return
	}

	if msg.Author.ID != b.client.ID() {
		return
	}

	if err := b.client.Rest().DeleteMessage(channelID, messageID, rest.WithCtx(ctx)); err != nil {
		b.logger.Error("Failed to delete message",
			zap.Error(err),
			zap.Uint64("channelID", uint64(channelID)),
			zap.Uint64("messageID", uint64(messageID)))
		return
	}

	b.logger.Debug("Deleted message on request",
		zap.Uint64("channelID", uint64(channelID)),
		zap.Uint64("messageID", uint64(messageID)))
}
