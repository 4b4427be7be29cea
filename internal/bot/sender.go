package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/chat"
)

// discordSender delivers chat output through the Discord REST API.
type discordSender struct {
	client bot.Client
	lookup nameLookup
}

// Reply implements chat.Sender.
func (s *discordSender) Reply(
	ctx context.Context, channelID, replyTo snowflake.ID, content string,
) (*chat.SentMessage, error) {
	msg, err := s.client.Rest().CreateMessage(channelID, discord.MessageCreate{
		Content:          content,
		MessageReference: &discord.MessageReference{MessageID: &replyTo},
		AllowedMentions:  &discord.AllowedMentions{RepliedUser: false},
	}, rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to send reply: %w", err)
	}

	return &chat.SentMessage{
		ID:      msg.ID,
		Author:  authorOf(msg.Author),
		Content: sanitizeContent(*msg, s.lookup),
	}, nil
}

// Typing implements chat.Sender.
func (s *discordSender) Typing(ctx context.Context, channelID snowflake.ID) error {
	return s.client.Rest().SendTyping(channelID, rest.WithCtx(ctx))
}

// cacheLookup resolves mention names from the gateway cache.
type cacheLookup struct {
	client bot.Client
}

func (l cacheLookup) RoleName(guildID, roleID snowflake.ID) (string, bool) {
	role, ok := l.client.Caches().Role(guildID, roleID)
	if !ok {
		return "", false
	}
	return role.Name, true
}

func (l cacheLookup) ChannelName(channelID snowflake.ID) (string, bool) {
	channel, ok := l.client.Caches().Channel(channelID)
	if !ok {
		return "", false
	}
	return channel.Name(), true
}

// authorOf converts a Discord user into a chat author.
func authorOf(user discord.User) chat.Author {
	return chat.Author{
		ID:          user.ID,
		Name:        user.Username,
		DisplayName: user.EffectiveName(),
	}
}
