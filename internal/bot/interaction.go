package bot

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/robalyx/lumi/internal/bot/commands"
	"go.uber.org/zap"
)

// handleApplicationCommandInteraction dispatches slash commands.
func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	options := make(map[string]string, len(data.Options))
	for name := range data.Options {
		if value, ok := data.OptString(name); ok {
			options[name] = value
		}
	}

	req := commands.Request{
		ChannelID: event.Channel().ID(),
		UserID:    event.User().ID,
		Options:   options,
	}
	name := data.CommandName()

	// Commands skip the event pool so a busy pool cannot delay the
	// interaction past Discord's response deadline.
	go b.run("command", func(ctx context.Context) {
		resp := b.commands.Dispatch(ctx, name, req)

		create := discord.MessageCreate{
			Content:         resp.Content,
			AllowedMentions: &discord.AllowedMentions{},
		}
		if resp.Ephemeral {
			create.Flags = discord.MessageFlagEphemeral
		}

		if err := event.CreateMessage(create); err != nil {
			b.logger.Error("Failed to respond to command",
				zap.Error(err),
				zap.String("command", name))
		}
	})
}
