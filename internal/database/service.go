package database

import (
	"github.com/robalyx/lumi/internal/database/service"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	conversation *service.ConversationService
	channel      *service.ChannelService
}

// NewService creates a new service instance with all services.
func NewService(db *bun.DB, repository *Repository, logger *zap.Logger) *Service {
	channelModel := repository.Channel()
	messageModel := repository.Message()
	promptModel := repository.SystemPrompt()

	return &Service{
		conversation: service.NewConversation(db, channelModel, messageModel, promptModel, logger),
		channel:      service.NewChannel(channelModel, promptModel, logger),
	}
}

// Conversation returns the conversation service.
func (s *Service) Conversation() *service.ConversationService {
	return s.conversation
}

// Channel returns the channel service.
func (s *Service) Channel() *service.ChannelService {
	return s.channel
}
