package chat

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker fans events out over one redis pub/sub channel.
type RedisBroker struct {
	hub     *Hub
	client  *redis.Client
	channel string
}

// NewRedisBroker fans events out over one pub/sub channel shared by all instances.
func NewRedisBroker(client *redis.Client, channel string, hub *Hub) *RedisBroker {
	return &RedisBroker{hub: hub, client: client, channel: channel}
}

// Publish sends the JSON encoded event to the channel.
func (r *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Start subscribes, waits for the confirmation, then forwards until ctx is
// done.
func (r *RedisBroker) Start(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			zap.L().Error("redis subscribe failed", zap.String("channel", r.channel), zap.Error(err))
		}
		return
	}

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				zap.L().Warn("redis event decode failed", zap.Error(err))
				continue
			}
			r.hub.Deliver(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (r *RedisBroker) Close() error { return nil }
