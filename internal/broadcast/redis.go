package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/fight-ledger/internal/shared/metrics"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publica envelopes num canal Pub/Sub consumido pelo ws-gateway
type Redis struct {
	r       redisPublisher
	channel string
	log     *zap.Logger
	metrics *metrics.Collectors
}

func NewRedis(r redisPublisher, channel string, log *zap.Logger, m *metrics.Collectors) *Redis {
	return &Redis{r: r, channel: channel, log: log, metrics: m}
}

func (b *Redis) Publish(ctx context.Context, topic, key string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		failed(b.log, b.metrics, "redis", topic, err)
		return
	}
	msg, _ := json.Marshal(Envelope{Topic: topic, Room: key, Payload: raw})

	ctx, cancel := detach(ctx)
	defer cancel()
	if err := b.r.Publish(ctx, b.channel, msg).Err(); err != nil {
		failed(b.log, b.metrics, "redis", topic, err)
	}
}
