package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/lumi/internal/database/types/enum"
	"github.com/uptrace/bun"
)

// DefaultSystemPromptID is the chat prompt assigned to new channels.
const DefaultSystemPromptID int64 = 2

// JudgeSystemPromptID is the prompt used for reply decisions.
const JudgeSystemPromptID int64 = 1

// Channel stores the per-channel conversation settings and window cutoff.
type Channel struct {
	bun.BaseModel `bun:"table:channels,alias:c"`

	ID            snowflake.ID  `bun:",pk"`
	ChatMode      enum.ChatMode `bun:",notnull,default:2"`
	ContextWindow time.Time     `bun:",nullzero,notnull,default:'epoch'"`
	SystemPrompt  int64         `bun:",notnull,default:2"`
}
