package enum

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownChatMode is returned when a chat mode name cannot be parsed.
var ErrUnknownChatMode = errors.New("unknown chat mode")

// ChatMode controls when Lumi replies in a channel.
type ChatMode int

const (
	// ChatModeFreeResponse lets the judge decide whether to reply to any message.
	ChatModeFreeResponse ChatMode = iota
	// ChatModeMentionsOnly replies only when mentioned and only sees mentioning messages.
	ChatModeMentionsOnly
	// ChatModeMentionsOnlyAllContext replies only when mentioned but sees the whole channel.
	ChatModeMentionsOnlyAllContext
)

// DefaultChatMode is the mode given to channels seen for the first time.
const DefaultChatMode = ChatModeMentionsOnlyAllContext

var chatModeKeys = map[ChatMode]string{
	ChatModeFreeResponse:           "free_response",
	ChatModeMentionsOnly:           "mentions_only",
	ChatModeMentionsOnlyAllContext: "mentions_only_all_context",
}

var chatModeNames = map[ChatMode]string{
	ChatModeFreeResponse:           "Free Response",
	ChatModeMentionsOnly:           "Mentions Only",
	ChatModeMentionsOnlyAllContext: "Mentions Only All Context",
}

// ChatModeValues returns every chat mode in declaration order.
func ChatModeValues() []ChatMode {
	return []ChatMode{ChatModeFreeResponse, ChatModeMentionsOnly, ChatModeMentionsOnlyAllContext}
}

// String returns the human-readable name shown to users.
func (m ChatMode) String() string {
	if name, ok := chatModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ChatMode(%d)", int(m))
}

// Key returns the stable identifier used for command choices.
func (m ChatMode) Key() string {
	return chatModeKeys[m]
}

// IsValid reports whether the value is a known chat mode.
func (m ChatMode) IsValid() bool {
	_, ok := chatModeKeys[m]
	return ok
}

// IncludesAllContext reports whether messages that do not address Lumi are
// part of the conversation context.
func (m ChatMode) IncludesAllContext() bool {
	return m != ChatModeMentionsOnly
}

// ChatModeString parses a chat mode from its key or display name.
func ChatModeString(s string) (ChatMode, error) {
	s = strings.TrimSpace(s)
	for _, mode := range ChatModeValues() {
		if strings.EqualFold(s, chatModeKeys[mode]) || strings.EqualFold(s, chatModeNames[mode]) {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChatMode, s)
}
