package chat

import (
	"context"
	"fmt"

	"github.com/robalyx/lumi/internal/database/types"
)

// SelectWindow returns the messages inside the channel's context window. When
// the selection holds at least threshold messages the window is moved up to
// the time of the middle message, so the next selection keeps the newer half.
// The returned slice is always the selection made before the window moved.
func SelectWindow(ctx context.Context, tx Tx, allContext bool, threshold int) ([]*types.Message, error) {
	messages, err := tx.WindowMessages(ctx, allContext)
	if err != nil {
		return nil, fmt.Errorf("failed to select window: %w", err)
	}

	if len(messages) > 0 && len(messages) >= threshold {
		middle := messages[len(messages)/2]
		if err := tx.AdvanceWindow(ctx, middle.Time); err != nil {
			return nil, fmt.Errorf("failed to advance window: %w", err)
		}
	}

	return messages, nil
}
