package loki

import (
	"github.com/bytedance/sonic"
	"go.uber.org/zap/zapcore"
)

// Core implements zapcore.Core interface for Loki log shipping.
type Core struct {
	zapcore.LevelEnabler

	pusher *Pusher
	fields []zapcore.Field
}

// NewCore creates a new Loki Core with the provided pusher.
func NewCore(enabler zapcore.LevelEnabler, pusher *Pusher) *Core {
	return &Core{
		LevelEnabler: enabler,
		pusher:       pusher,
	}
}

// With returns a new Core carrying the given fields on every entry.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	return &Core{
		LevelEnabler: c.LevelEnabler,
		pusher:       c.pusher,
		fields:       append(append([]zapcore.Field{}, c.fields...), fields...),
	}
}

// Check determines whether the supplied Entry should be logged.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write encodes the entry as a JSON log line and queues it for Loki.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}

	line := enc.Fields
	line["level"] = ent.Level.String()
	line["msg"] = ent.Message
	line["logger"] = ent.LoggerName
	line["caller"] = ent.Caller.TrimmedPath()
	if ent.Stack != "" {
		line["stacktrace"] = ent.Stack
	}

	raw, err := sonic.MarshalString(line)
	if err != nil {
		return err
	}

	c.pusher.AddEntry(entry{timestamp: ent.Time.UnixNano(), line: raw})
	return nil
}

// Sync is a no-op; the pusher flushes batches on its own schedule.
func (c *Core) Sync() error {
	return nil
}
