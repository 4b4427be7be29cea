package commands

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/robalyx/lumi/internal/database/types/enum"
)

// ChannelSettings reads and changes per-channel settings.
type ChannelSettings interface {
	GetChatMode(ctx context.Context, channelID snowflake.ID) (*enum.ChatMode, error)
	SetChatMode(ctx context.Context, channelID snowflake.ID, mode enum.ChatMode) error
	GetSystemPrompt(ctx context.Context, channelID snowflake.ID) (*types.SystemPrompt, error)
	SetSystemPrompt(ctx context.Context, channelID snowflake.ID, name string) (*types.SystemPrompt, error)
	ResetContext(ctx context.Context, channelID snowflake.ID) error
}

// ChatMode shows or changes the chat mode of a channel.
type ChatMode struct {
	settings ChannelSettings
}

// NewChatMode creates the chat_mode command.
func NewChatMode(settings ChannelSettings) *ChatMode {
	return &ChatMode{settings: settings}
}

// Definition implements Command.
func (c *ChatMode) Definition() discord.SlashCommandCreate {
	choices := make([]discord.ApplicationCommandOptionChoiceString, 0, len(enum.ChatModeValues()))
	for _, mode := range enum.ChatModeValues() {
		choices = append(choices, discord.ApplicationCommandOptionChoiceString{
			Name:  mode.String(),
			Value: mode.Key(),
		})
	}

	return discord.SlashCommandCreate{
		Name:        "chat_mode",
		Description: "Set or view Lumi's chat mode for the current channel",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "mode",
				Description: "Which chat mode Lumi should use",
				Required:    false,
				Choices:     choices,
			},
		},
	}
}

// Execute implements Command.
func (c *ChatMode) Execute(ctx context.Context, req Request) (Response, error) {
	if value, ok := req.Option("mode"); ok {
		mode, err := enum.ChatModeString(value)
		if err != nil {
			return Response{}, err
		}

		if err := c.settings.SetChatMode(ctx, req.ChannelID, mode); err != nil {
			return Response{}, err
		}

		return Response{Content: "Updated Lumi's chat mode to " + mode.String()}, nil
	}

	mode, err := c.settings.GetChatMode(ctx, req.ChannelID)
	if err != nil {
		return Response{}, err
	}
	if mode == nil {
		return Response{Content: "Lumi does not have a chat mode set for this channel"}, nil
	}

	return Response{Content: "Lumi's current chat mode is " + mode.String()}, nil
}
