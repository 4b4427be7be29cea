package chat_test

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/chat"
	"github.com/robalyx/lumi/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	channelID = snowflake.ID(100)
	botID     = snowflake.ID(999)
)

func userMessage(id snowflake.ID, mentions bool, contents string) *types.Message {
	return &types.Message{
		ID:                id,
		MentionsSelf:      mentions,
		Sender:            snowflake.ID(7),
		SenderName:        "ana",
		SenderDisplayName: "Ana",
		Channel:           channelID,
		Contents:          contents,
	}
}

func TestSelectWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		count       int
		threshold   int
		wantAdvance bool
		wantMiddle  int
	}{
		{name: "below threshold", count: 3, threshold: 4},
		{name: "at threshold", count: 4, threshold: 4, wantAdvance: true, wantMiddle: 2},
		{name: "above threshold odd", count: 7, threshold: 4, wantAdvance: true, wantMiddle: 3},
		{name: "zero threshold singleton", count: 1, threshold: 0, wantAdvance: true, wantMiddle: 0},
		{name: "one threshold singleton", count: 1, threshold: 1, wantAdvance: true, wantMiddle: 0},
		{name: "zero threshold empty", count: 0, threshold: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemoryStore()
			for i := range tt.count {
				store.seed(userMessage(snowflake.ID(i+1), false, "hi"))
			}

			tx, err := store.Begin(t.Context(), channelID)
			require.NoError(t, err)

			selected, err := chat.SelectWindow(t.Context(), tx, true, tt.threshold)
			require.NoError(t, err)
			require.Len(t, selected, tt.count)
			require.NoError(t, tx.Commit())

			if !tt.wantAdvance {
				assert.Empty(t, store.advances)
				assert.True(t, store.window(channelID).IsZero())
				return
			}

			require.Len(t, store.advances, 1, "window advances exactly once")
			assert.Equal(t, selected[tt.wantMiddle].Time, store.advances[0])
			assert.Equal(t, selected[tt.wantMiddle].Time, store.window(channelID))
		})
	}
}

func TestSelectWindowDropsOlderHalf(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	for i := range 6 {
		store.seed(userMessage(snowflake.ID(i+1), false, "hi"))
	}

	tx, err := store.Begin(t.Context(), channelID)
	require.NoError(t, err)
	first, err := chat.SelectWindow(t.Context(), tx, true, 6)
	require.NoError(t, err)
	require.Len(t, first, 6)

	// Selecting again in the same transaction sees the advanced cutoff
	second, err := tx.WindowMessages(t.Context(), true)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, snowflake.ID(5), second[0].ID)
	require.NoError(t, tx.Commit())
}

func TestSelectWindowMentionsOnly(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.seed(
		userMessage(1, false, "a"),
		userMessage(2, true, "b"),
		userMessage(3, false, "c"),
		userMessage(4, true, "d"),
	)

	tx, err := store.Begin(t.Context(), channelID)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	selected, err := chat.SelectWindow(t.Context(), tx, false, 10)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, snowflake.ID(2), selected[0].ID)
	assert.Equal(t, snowflake.ID(4), selected[1].ID)

	again, err := chat.SelectWindow(t.Context(), tx, false, 10)
	require.NoError(t, err)
	assert.Equal(t, selected, again, "selection without advance is repeatable")
}
