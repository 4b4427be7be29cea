package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/openai/openai-go"
	"github.com/robalyx/lumi/internal/ai/client"
	"github.com/robalyx/lumi/internal/setup/config"
	"go.uber.org/zap"
)

// ErrJudgeExhausted is returned when the judge never produced a valid decision.
var ErrJudgeExhausted = errors.New("judge did not produce a valid decision")

// ErrMissingDecision is returned when the judge output has no should_reply field.
var ErrMissingDecision = errors.New("missing field `should_reply`")

// ReplyDecision is the structured output of the judge.
type ReplyDecision struct {
	ShouldReply *bool `json:"should_reply" jsonschema_description:"Whether Lumi should reply to the latest message"`
}

// Validate checks that the decision was present in the output.
func (d *ReplyDecision) Validate() error {
	if d.ShouldReply == nil {
		return ErrMissingDecision
	}
	return nil
}

// ReplyDecisionSchema is the JSON schema requested from the judge model.
var ReplyDecisionSchema = GenerateSchema[ReplyDecision]()

// DecisionJSON renders a decision the way the judge is asked to answer.
func DecisionJSON(shouldReply bool) string {
	raw, _ := sonic.MarshalString(struct {
		ShouldReply bool `json:"should_reply"`
	}{shouldReply})
	return raw
}

// ConfigSource provides the current configuration.
type ConfigSource interface {
	Get() *config.Config
}

// Judge decides whether Lumi should reply to a conversation.
type Judge struct {
	chat   client.ChatCompletions
	config ConfigSource
	logger *zap.Logger
}

// NewJudge creates a new judge.
func NewJudge(chat client.ChatCompletions, cfg ConfigSource, logger *zap.Logger) *Judge {
	return &Judge{
		chat:   chat,
		config: cfg,
		logger: logger.Named("ai_judge"),
	}
}

// ShouldReply asks the judge model whether to reply to the conversation.
func (j *Judge) ShouldReply(ctx context.Context, messages []Message) (bool, error) {
	cfg := j.config.Get()
	model := cfg.Bot.Models.Judge

	params := openai.ChatCompletionNewParams{
		Messages:       toOpenAI(messages),
		Model:          model.Name,
		Temperature:    openai.Float(0),
		N:              openai.Int(1),
		ResponseFormat: jsonSchemaFormat("replyDecision", "Decision on whether to reply", ReplyDecisionSchema),
	}
	if extra := client.NewExtraFieldsSettings(model).Build(); extra != nil {
		params.SetExtraFields(extra)
	}

	decision, attempts, err := DecodeWithRepair[ReplyDecision](ctx, j.chat, params, cfg.Bot.Chat.MaxAttempts)
	if err != nil {
		if errors.Is(err, ErrRepairExhausted) {
			return false, fmt.Errorf("%w: %w", ErrJudgeExhausted, err)
		}
		return false, fmt.Errorf("judge request failed: %w", err)
	}

	j.logger.Debug("Judge decided",
		zap.Bool("shouldReply", *decision.ShouldReply),
		zap.Int("attempts", attempts),
		zap.Int("messages", len(messages)))

	return *decision.ShouldReply, nil
}
