package ai

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyDecisionSchema(t *testing.T) {
	t.Parallel()

	raw, err := sonic.MarshalString(ReplyDecisionSchema)
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, sonic.UnmarshalString(raw, &schema))

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []any{"should_reply"}, schema["required"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	shouldReply, ok := properties["should_reply"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "boolean", shouldReply["type"])
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: ` {"a":1} `, want: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", input: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "thinking", input: "<think>hmm</think>\n{\"a\":1}", want: `{"a":1}`},
		{name: "empty", input: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanJSON(tt.input))
		})
	}
}
