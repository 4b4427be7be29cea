package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/database/models"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/robalyx/lumi/internal/database/types/enum"
	"go.uber.org/zap"
)

// ErrPromptNotFound is returned when a system prompt name does not exist.
var ErrPromptNotFound = errors.New("could not find a system prompt for the given name")

// ChannelService handles channel settings changed through commands.
type ChannelService struct {
	channels *models.ChannelModel
	prompts  *models.SystemPromptModel
	logger   *zap.Logger
}

// NewChannel creates a new channel service.
func NewChannel(channels *models.ChannelModel, prompts *models.SystemPromptModel, logger *zap.Logger) *ChannelService {
	return &ChannelService{
		channels: channels,
		prompts:  prompts,
		logger:   logger.Named("channel_service"),
	}
}

// GetChatMode returns the chat mode of a channel, or nil if the channel has no settings yet.
func (s *ChannelService) GetChatMode(ctx context.Context, channelID snowflake.ID) (*enum.ChatMode, error) {
	channel, err := s.channels.GetChannel(ctx, channelID)
	if err != nil || channel == nil {
		return nil, err
	}
	return &channel.ChatMode, nil
}

// SetChatMode updates the chat mode of a channel.
func (s *ChannelService) SetChatMode(ctx context.Context, channelID snowflake.ID, mode enum.ChatMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %d", enum.ErrUnknownChatMode, mode)
	}

	if err := s.channels.SetChatMode(ctx, channelID, mode); err != nil {
		return err
	}

	s.logger.Info("Updated chat mode",
		zap.Uint64("channelID", uint64(channelID)),
		zap.String("mode", mode.String()))

	return nil
}

// GetSystemPrompt returns the chat prompt used in a channel. Channels that
// have never been seen use the default prompt.
func (s *ChannelService) GetSystemPrompt(ctx context.Context, channelID snowflake.ID) (*types.SystemPrompt, error) {
	promptID := types.DefaultSystemPromptID

	channel, err := s.channels.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel != nil {
		promptID = channel.SystemPrompt
	}

	return s.prompts.GetByID(ctx, promptID)
}

// SetSystemPrompt points a channel at the prompt with the given name.
func (s *ChannelService) SetSystemPrompt(
	ctx context.Context, channelID snowflake.ID, name string,
) (*types.SystemPrompt, error) {
	prompt, err := s.prompts.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if prompt == nil {
		return nil, fmt.Errorf("%w: %q", ErrPromptNotFound, name)
	}

	if err := s.channels.SetSystemPrompt(ctx, channelID, prompt.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Updated system prompt",
		zap.Uint64("channelID", uint64(channelID)),
		zap.String("prompt", prompt.Name))

	return prompt, nil
}

// ResetContext clears the conversation context of a channel.
func (s *ChannelService) ResetContext(ctx context.Context, channelID snowflake.ID) error {
	if err := s.channels.ResetContext(ctx, channelID); err != nil {
		return err
	}

	s.logger.Info("Reset context", zap.Uint64("channelID", uint64(channelID)))
	return nil
}
