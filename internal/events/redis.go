package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "permit-events"

// RedisPublisher publishes events on a Redis pub/sub channel so external
// notifiers (mail/SMS workers) can subscribe without touching this
// service's database. Delivery is fire-and-forget.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisPublisher(rdb *redis.Client, channel string, log *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = defaultChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisPublisher{rdb: rdb, channel: channel, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.log.Error("event marshal failed", "type", e.Type, "permit_id", e.PermitID, "err", err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		// Best-effort: a notifier outage must not fail permit operations.
		p.log.Warn("event publish failed", "type", e.Type, "permit_id", e.PermitID, "err", err)
	}
}
