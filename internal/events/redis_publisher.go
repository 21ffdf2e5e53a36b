package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisPublisher returns a handler that mirrors events onto a Redis
// pub/sub channel as JSON.
func NewRedisPublisher(client *redis.Client, channel string) EventHandler {
	return func(ctx context.Context, event Event) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.Type, err)
		}
		if err := client.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("publish event %s: %w", event.Type, err)
		}
		return nil
	}
}

// SubscribeAll registers handler for every known event type.
func SubscribeAll(d Dispatcher, handler EventHandler) {
	for _, t := range AllTypes {
		d.Subscribe(t, handler)
	}
}
