package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

// ChannelItems carries every lifecycle event. Per-kind channels use the
// "items:{kind}" form, e.g. "items:item_sold".
const ChannelItems = "items"

// EventBus implements domain.EventBus using Redis Pub/Sub. Events are
// ephemeral; a subscriber that connects late does not replay history.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{rdb: c.Underlying()}
}

// Publish sends the event to the aggregate items channel and to the
// per-kind channel.
func (eb *EventBus) Publish(ctx context.Context, event domain.ItemEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event %s: %w", event.ID, err)
	}

	pipe := eb.rdb.Pipeline()
	pipe.Publish(ctx, ChannelItems, payload)
	pipe.Publish(ctx, ChannelItems+":"+string(event.Kind), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish event %s: %w", event.ID, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription over the given channels and
// returns a read-only payload channel plus a cancel function that releases
// the subscription and closes the channel.
func (eb *EventBus) Subscribe(ctx context.Context, channels ...string) (<-chan []byte, func(), error) {
	if len(channels) == 0 {
		channels = []string{ChannelItems}
	}

	subCtx, cancel := context.WithCancel(ctx)

	var pubsub *redis.PubSub
	if hasPattern(channels...) {
		pubsub = eb.rdb.PSubscribe(subCtx, channels...)
	} else {
		pubsub = eb.rdb.Subscribe(subCtx, channels...)
	}

	// Receive the subscription confirmation before handing out the channel.
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis: subscribe %v: %w", channels, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// hasPattern returns true when any channel uses glob-style wildcards, in
// which case PSubscribe must be used.
func hasPattern(channels ...string) bool {
	for _, ch := range channels {
		if strings.ContainsAny(ch, "*?[") {
			return true
		}
	}
	return false
}

// Compile-time interface check.
var _ domain.EventBus = (*EventBus)(nil)
