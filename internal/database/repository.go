package database

import (
	"github.com/robalyx/lumi/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	channel      *models.ChannelModel
	message      *models.MessageModel
	systemPrompt *models.SystemPromptModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		channel:      models.NewChannel(db, logger),
		message:      models.NewMessage(db, logger),
		systemPrompt: models.NewSystemPrompt(db, logger),
	}
}

// Channel returns the channel model repository.
func (r *Repository) Channel() *models.ChannelModel {
	return r.channel
}

// Message returns the message model repository.
func (r *Repository) Message() *models.MessageModel {
	return r.message
}

// SystemPrompt returns the system prompt model repository.
func (r *Repository) SystemPrompt() *models.SystemPromptModel {
	return r.systemPrompt
}
