package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/robalyx/lumi/internal/ai/client"
	"go.uber.org/zap"
)

const (
	chatTemperature = 0.6
	chatTopP        = 0.99
)

// ChatGenerator produces Lumi's replies.
type ChatGenerator struct {
	chat   client.ChatCompletions
	config ConfigSource
	logger *zap.Logger
}

// NewChatGenerator creates a new chat generator.
func NewChatGenerator(chat client.ChatCompletions, cfg ConfigSource, logger *zap.Logger) *ChatGenerator {
	return &ChatGenerator{
		chat:   chat,
		config: cfg,
		logger: logger.Named("ai_chat"),
	}
}

// Generate returns the reply for a conversation. An empty string means the
// model had nothing to say.
func (g *ChatGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	model := g.config.Get().Bot.Models.Chat

	params := openai.ChatCompletionNewParams{
		Messages:    toOpenAI(messages),
		Model:       model.Name,
		Temperature: openai.Float(chatTemperature),
		TopP:        openai.Float(chatTopP),
		N:           openai.Int(1),
	}
	if extra := client.NewExtraFieldsSettings(model).Build(); extra != nil {
		params.SetExtraFields(extra)
	}

	resp, err := g.chat.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		g.logger.Warn("Chat model returned no choices", zap.String("model", model.Name))
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
