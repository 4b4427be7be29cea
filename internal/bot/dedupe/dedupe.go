// Package dedupe claims gateway events in Redis so events replayed after a
// gateway resume are only handled once.
package dedupe

import (
	"context"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const keyPrefix = "lumi:message:"

// Claimer reports whether the caller is the first to handle a message.
type Claimer interface {
	Claim(ctx context.Context, messageID snowflake.ID) bool
}

// Deduper claims message ids with SET NX.
type Deduper struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a Deduper that remembers claims for ttl.
func New(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		client: client,
		ttl:    ttl,
		logger: logger.Named("dedupe"),
	}
}

// Claim returns true if the message has not been claimed before. Redis errors
// are logged and treated as a successful claim so an outage never drops messages.
func (d *Deduper) Claim(ctx context.Context, messageID snowflake.ID) bool {
	key := keyPrefix + strconv.FormatUint(uint64(messageID), 10)

	cmd := d.client.B().Set().Key(key).Value("1").Nx().ExSeconds(int64(d.ttl.Seconds())).Build()
	err := d.client.Do(ctx, cmd).Error()
	if rueidis.IsRedisNil(err) {
		d.logger.Debug("Skipping replayed message", zap.Uint64("messageID", uint64(messageID)))
		return false
	}
	if err != nil {
		d.logger.Warn("Failed to claim message",
			zap.Error(err),
			zap.Uint64("messageID", uint64(messageID)))
	}

	return true
}

// Noop claims every message. It is used when Redis is disabled.
type Noop struct{}

// Claim always returns true.
func (Noop) Claim(context.Context, snowflake.ID) bool {
	return true
}
