package commands

import (
	"context"

	"github.com/disgoorg/disgo/discord"
)

// ResetContext clears the conversation context of a channel.
type ResetContext struct {
	settings ChannelSettings
}

// NewResetContext creates the reset_context command.
func NewResetContext(settings ChannelSettings) *ResetContext {
	return &ResetContext{settings: settings}
}

// Definition implements Command.
func (c *ResetContext) Definition() discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        "reset_context",
		Description: "Reset Lumi's context for the current channel",
	}
}

// Execute implements Command.
func (c *ResetContext) Execute(ctx context.Context, req Request) (Response, error) {
	if err := c.settings.ResetContext(ctx, req.ChannelID); err != nil {
		return Response{}, err
	}
	return Response{Content: "Reset context!"}, nil
}
