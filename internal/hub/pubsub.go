package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"wastewatch/backend/internal/models"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis pub/sub channel shared by all instances.
const EventsChannel = "complaints:events"

// Broker carries events between server instances.
type Broker interface {
	Publish(ctx context.Context, event models.ComplaintEvent) error
	// Subscribe streams events until ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan models.ComplaintEvent, error)
}

// RedisBroker is a Broker over Redis pub/sub.
type RedisBroker struct {
	Redis   *redis.Client
	Channel string
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{Redis: rdb, Channel: EventsChannel}
}

func (b *RedisBroker) Publish(ctx context.Context, event models.ComplaintEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.Redis.Publish(ctx, b.Channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	pubsub := b.Redis.Subscribe(ctx, b.Channel)
	// Wait for the subscription confirmation so errors surface here.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", b.Channel, err)
	}

	out := make(chan models.ComplaintEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.ComplaintEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.WithError(err).Warn("dropping malformed event from redis")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
