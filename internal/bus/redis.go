package bus

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type wireEvent struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"data,omitempty"`
	Origin  string          `json:"origin,omitempty"`
}

// Redis bridges the bus over Redis pub/sub so several instances can
// share one dashboard audience.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis builds a Redis-backed bus on the given channel.
func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = "classtrack:events"
	}
	return &Redis{client: client, channel: channel}
}

// Publish serializes the event and PUBLISHes it.
func (r *Redis) Publish(ctx context.Context, evt Event) error {
	publishedTotal.WithLabelValues(evt.Name).Inc()
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(wireEvent{Name: evt.Name, Payload: payload, Origin: evt.Origin})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Subscribe opens a dedicated Redis subscription and pumps decoded
// events until Close. Events originated by this subscriber are skipped.
func (r *Redis) Subscribe() *Subscription {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, r.channel)
	ch := make(chan Event, 16)

	go func() {
		defer close(ch)
		for msg := range pubsub.Channel() {
			var we wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &we); err != nil {
				log.Printf("bus: drop malformed event: %v", err)
				continue
			}
			if we.Origin != "" && we.Origin == id {
				continue
			}
			var payload any
			if len(we.Payload) > 0 {
				if err := json.Unmarshal(we.Payload, &payload); err != nil {
					log.Printf("bus: drop malformed payload: %v", err)
					continue
				}
			}
			select {
			case ch <- Event{Name: we.Name, Payload: payload, Origin: we.Origin}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Subscription{
		ID: id,
		C:  ch,
		cancel: func() {
			cancel()
			_ = pubsub.Close()
		},
	}
}
