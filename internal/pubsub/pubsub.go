// internal/pubsub/pubsub.go
package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/highroll-dev/highroll/internal/eventlog"
	"github.com/highroll-dev/highroll/internal/game"
)

// Channel is the Redis channel game events are published on.
const Channel = "game_event"

// Redis fans game events out to observers over a Redis channel. Publication
// is best-effort notification: the durable log is the canonical state, so a
// failed publish is reported for logging but must never block game progress.
type Redis struct {
	client *redis.Client
}

// New wraps an established Redis client.
func New(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Publish serializes the event and publishes it on the game_event channel.
func (r *Redis) Publish(ctx context.Context, ev game.Event) error {
	data, err := eventlog.Marshal(ev)
	if err != nil {
		return fmt.Errorf("pubsub: encode event: %w", err)
	}
	if err := r.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("pubsub: publish to %s: %w", Channel, err)
	}
	return nil
}

// Subscribe opens a subscription on the game_event channel for observers.
// The caller owns the returned subscription and must Close it.
func (r *Redis) Subscribe(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, Channel)
}
