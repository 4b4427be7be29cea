package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// Message is a single persisted chat message, either inbound or sent by Lumi.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID                snowflake.ID `bun:",pk"`
	IsSelf            bool         `bun:",notnull"`
	MentionsSelf      bool         `bun:",notnull"`
	Sender            snowflake.ID `bun:",notnull"`
	SenderName        string       `bun:",notnull"`
	SenderDisplayName string       `bun:",notnull"`
	Guild             *snowflake.ID
	Channel           snowflake.ID `bun:",notnull"`
	Contents          string       `bun:",notnull"`
	Reply             *snowflake.ID
	Time              time.Time `bun:",nullzero,notnull,default:clock_timestamp()"`

	// Filled by window queries joining the referenced message.
	ReplySenderName *string `bun:",scanonly"`
	ReplyContents   *string `bun:",scanonly"`
}

// HasReplyPreview reports whether the referenced message was resolved.
func (m *Message) HasReplyPreview() bool {
	return m.ReplySenderName != nil && m.ReplyContents != nil
}
