package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/redis/go-redis/v9"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes every event as JSON on a pub/sub channel.
type Redis struct {
	client  redisPublisher
	channel string
}

func NewRedis(client redisPublisher, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

// OpenRedis connects to addr and checks it with PING.
func OpenRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func (r *Redis) Publish(ctx context.Context, event domain.Event) error {
	const op = "internal.notify.Redis.Publish"

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal event: %w", op, err)
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("%s: failed to publish: %w", op, err)
	}

	return nil
}
