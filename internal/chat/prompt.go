package chat

import (
	"strings"

	"github.com/robalyx/lumi/internal/ai"
	"github.com/robalyx/lumi/internal/database/types"
)

// previewLength is the number of runes kept from a referenced message.
const previewLength = 128

// Contexts holds the two prompt sequences built from one window.
type Contexts struct {
	Chat  []ai.Message
	Judge []ai.Message
}

// BuildContexts builds the chat and judge sequences for a window.
func BuildContexts(chatPrompt, judgePrompt string, messages []*types.Message) Contexts {
	return Contexts{
		Chat:  BuildChatContext(chatPrompt, messages),
		Judge: BuildJudgeContext(judgePrompt, messages),
	}
}

// BuildChatContext returns the system prompt followed by one message per
// window entry. Lumi's own messages are replayed verbatim as assistant turns.
func BuildChatContext(prompt string, messages []*types.Message) []ai.Message {
	result := make([]ai.Message, 0, len(messages)+1)
	result = append(result, ai.SystemMessage(prompt))

	for _, m := range messages {
		if m.IsSelf {
			result = append(result, ai.AssistantMessage(m.Contents))
			continue
		}
		result = append(result, ai.UserMessage(RenderMessage(m)))
	}

	return result
}

// BuildJudgeContext returns the judge prompt followed by two messages per
// window entry: the decision Lumi effectively made for it, then the message.
func BuildJudgeContext(prompt string, messages []*types.Message) []ai.Message {
	result := make([]ai.Message, 0, 2*len(messages)+1)
	result = append(result, ai.SystemMessage(prompt))

	for _, m := range messages {
		result = append(result,
			ai.AssistantMessage(ai.DecisionJSON(m.IsSelf)),
			ai.UserMessage(RenderMessage(m)),
		)
	}

	return result
}

// RenderMessage formats a stored message for the model.
func RenderMessage(m *types.Message) string {
	var b strings.Builder

	if m.HasReplyPreview() {
		b.WriteString("Replying to:\n\tReferenced Author ID: ")
		b.WriteString(*m.ReplySenderName)
		b.WriteString("\n\tReferenced Truncated Contents: ")
		b.WriteString(Preview(*m.ReplyContents))
		b.WriteString("\n")
	}

	b.WriteString("Author Name: ")
	b.WriteString(m.SenderDisplayName)
	b.WriteString("\nAuthor ID: ")
	b.WriteString(m.SenderName)
	b.WriteString("\nContents:\n")
	b.WriteString(m.Contents)

	return b.String()
}

// Preview truncates referenced contents to a single line of at most 128 runes.
func Preview(contents string) string {
	runes := []rune(contents)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}

	for i, r := range runes {
		if r == '\n' || r == '\r' {
			runes[i] = ' '
		}
	}

	return string(runes)
}
