package enum_test

import (
	"testing"

	"github.com/robalyx/lumi/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatModeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    enum.ChatMode
		wantErr bool
	}{
		{name: "free response key", input: "free_response", want: enum.ChatModeFreeResponse},
		{name: "mentions only key", input: "mentions_only", want: enum.ChatModeMentionsOnly},
		{name: "all context key", input: "mentions_only_all_context", want: enum.ChatModeMentionsOnlyAllContext},
		{name: "display name", input: "Mentions Only All Context", want: enum.ChatModeMentionsOnlyAllContext},
		{name: "case insensitive", input: " FREE_RESPONSE ", want: enum.ChatModeFreeResponse},
		{name: "unknown", input: "shouting", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := enum.ChatModeString(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, enum.ErrUnknownChatMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChatModeProperties(t *testing.T) {
	t.Parallel()

	assert.Equal(t, enum.ChatModeMentionsOnlyAllContext, enum.DefaultChatMode)
	assert.Equal(t, "Free Response", enum.ChatModeFreeResponse.String())
	assert.Equal(t, "ChatMode(9)", enum.ChatMode(9).String())
	assert.False(t, enum.ChatMode(9).IsValid())

	assert.True(t, enum.ChatModeFreeResponse.IncludesAllContext())
	assert.False(t, enum.ChatModeMentionsOnly.IncludesAllContext())
	assert.True(t, enum.ChatModeMentionsOnlyAllContext.IncludesAllContext())
}
