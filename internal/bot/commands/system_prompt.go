package commands

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
)

// SystemPrompt shows or changes the chat prompt of a channel.
type SystemPrompt struct {
	settings ChannelSettings
}

// NewSystemPrompt creates the system_prompt command.
func NewSystemPrompt(settings ChannelSettings) *SystemPrompt {
	return &SystemPrompt{settings: settings}
}

// Definition implements Command.
func (c *SystemPrompt) Definition() discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        "system_prompt",
		Description: "View or change Lumi's system prompt in the current channel",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "prompt",
				Description: "The system prompt for Lumi to use",
				Required:    false,
			},
		},
	}
}

// Execute implements Command.
func (c *SystemPrompt) Execute(ctx context.Context, req Request) (Response, error) {
	if name, ok := req.Option("prompt"); ok {
		prompt, err := c.settings.SetSystemPrompt(ctx, req.ChannelID, name)
		if err != nil {
			return Response{}, err
		}
		return Response{Content: fmt.Sprintf("Set Lumi's system prompt to '`%s`'", prompt.Name)}, nil
	}

	prompt, err := c.settings.GetSystemPrompt(ctx, req.ChannelID)
	if err != nil {
		return Response{}, err
	}
	if prompt == nil {
		return Response{Content: "Lumi does not have a system prompt set for this channel"}, nil
	}

	return Response{Content: fmt.Sprintf("Lumi's current system prompt is '`%s`'", prompt.Name)}, nil
}
