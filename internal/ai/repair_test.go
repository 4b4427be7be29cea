package ai_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/robalyx/lumi/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
}

func TestDecodeWithRepair(t *testing.T) {
	t.Parallel()

	base := openai.ChatCompletionNewParams{
		Model:    "m",
		Messages: []openai.ChatCompletionMessageParamUnion{openai.SystemMessage("be json")},
	}

	tests := []struct {
		name         string
		responses    []string
		maxAttempts  int
		wantName     string
		wantAttempts int
		wantErr      error
	}{
		{
			name:         "first attempt",
			responses:    []string{`{"name":"lumi"}`},
			maxAttempts:  3,
			wantName:     "lumi",
			wantAttempts: 1,
		},
		{
			name:         "succeeds after repairs",
			responses:    []string{`nope`, ``, `{"name":"lumi"}`},
			maxAttempts:  3,
			wantName:     "lumi",
			wantAttempts: 3,
		},
		{
			name:         "fenced output",
			responses:    []string{"```json\n{\"name\":\"lumi\"}\n```"},
			maxAttempts:  1,
			wantName:     "lumi",
			wantAttempts: 1,
		},
		{
			name:         "exhausted",
			responses:    []string{`nope`},
			maxAttempts:  4,
			wantAttempts: 4,
			wantErr:      ai.ErrRepairExhausted,
		},
		{
			name:         "attempts below one are treated as one",
			responses:    []string{`nope`},
			maxAttempts:  0,
			wantAttempts: 1,
			wantErr:      ai.ErrRepairExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chat := &scriptedChat{responses: tt.responses}
			result, attempts, err := ai.DecodeWithRepair[sample](t.Context(), chat, base, tt.maxAttempts)

			assert.Len(t, base.Messages, 1, "caller messages are not modified")
			assert.Equal(t, tt.wantAttempts, attempts)
			require.Len(t, chat.requests, tt.wantAttempts)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, result.Name)

			// Each retry carries one more repair message than the last
			for i, req := range chat.requests {
				require.Len(t, req.Messages, 1+i)
				if i > 0 {
					repair := systemContent(req.Messages[i])
					assert.True(t, strings.HasPrefix(repair, "Failed to parse JSON:\n"), repair)
					assert.True(t, strings.HasSuffix(repair, "\nTry again, and ensure your response is valid JSON"))
				}
			}
		})
	}
}

func TestDecodeWithRepairProviderError(t *testing.T) {
	t.Parallel()

	providerErr := errors.New("connection refused")
	chat := &scriptedChat{err: providerErr}

	_, attempts, err := ai.DecodeWithRepair[sample](t.Context(), chat, openai.ChatCompletionNewParams{}, 5)
	require.ErrorIs(t, err, providerErr)
	require.NotErrorIs(t, err, ai.ErrRepairExhausted)
	assert.Equal(t, 1, attempts)
	assert.Len(t, chat.requests, 1)
}
