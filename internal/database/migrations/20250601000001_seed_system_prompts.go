package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/lumi/internal/database/types"
	"github.com/uptrace/bun"
)

const judgePrompt = `You are deciding whether Lumi, a friendly member of a group chat, should reply to the latest message.
Each message in the conversation is preceded by the decision that was made for it.
Reply only when the latest message invites a response from Lumi, continues a conversation Lumi is part of, or would clearly benefit from Lumi joining in.
Stay quiet when people are talking among themselves.
Respond with a JSON object of the form {"should_reply": true} or {"should_reply": false} and nothing else.`

const defaultChatPrompt = `You are Lumi, a cheerful and curious member of a Discord group chat.
Keep replies short and conversational, match the tone of the chat, and never pretend to be another user.
Each user message lists its author and, when it is a reply, a preview of the message it replies to.
Answer with only the text of your message.`

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		prompts := []*types.SystemPrompt{
			{ID: types.JudgeSystemPromptID, Name: "judge", Contents: judgePrompt},
			{ID: types.DefaultSystemPromptID, Name: "default", Contents: defaultChatPrompt},
		}

		_, err := db.NewInsert().
			Model(&prompts).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed system prompts: %w", err)
		}

		// Explicit ids bypass the serial sequence
		_, err = db.NewRaw(`
			SELECT setval(pg_get_serial_sequence('system_prompts', 'id'), GREATEST(MAX(id), ?))
			FROM system_prompts`, types.DefaultSystemPromptID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to advance system prompt sequence: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewDelete().
			Model((*types.SystemPrompt)(nil)).
			Where("id IN (?)", bun.In([]int64{types.JudgeSystemPromptID, types.DefaultSystemPromptID})).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove seeded system prompts: %w", err)
		}

		return nil
	})
}
