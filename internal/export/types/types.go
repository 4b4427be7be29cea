package types

import (
	"strconv"
	"time"

	dbTypes "github.com/robalyx/lumi/internal/database/types"
)

// Record is a single transcript row in export form.
type Record struct {
	ID                string
	Time              time.Time
	Sender            string
	SenderName        string
	SenderDisplayName string
	IsSelf            bool
	MentionsSelf      bool
	Reply             string
	Contents          string
}

// Columns lists the exported fields in output order.
var Columns = []string{
	"id", "time", "sender", "sender_name", "sender_display_name",
	"is_self", "mentions_self", "reply", "contents",
}

// FromMessage converts a stored message into an export record.
// Snowflakes are written as strings since they overflow signed 64-bit columns.
func FromMessage(message *dbTypes.Message) *Record {
	record := &Record{
		ID:                message.ID.String(),
		Time:              message.Time.UTC(),
		Sender:            message.Sender.String(),
		SenderName:        message.SenderName,
		SenderDisplayName: message.SenderDisplayName,
		IsSelf:            message.IsSelf,
		MentionsSelf:      message.MentionsSelf,
		Contents:          message.Contents,
	}
	if message.Reply != nil {
		record.Reply = message.Reply.String()
	}
	return record
}

// Fields returns the record as strings in Columns order.
func (r *Record) Fields() []string {
	return []string{
		r.ID,
		r.Time.Format(time.RFC3339Nano),
		r.Sender,
		r.SenderName,
		r.SenderDisplayName,
		strconv.FormatBool(r.IsSelf),
		strconv.FormatBool(r.MentionsSelf),
		r.Reply,
		r.Contents,
	}
}
