package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Relay delivers events to the hubs of every running instance.
type Relay interface {
	Publish(ctx context.Context, ev Event) error
}

// LocalRelay publishes straight into the process hub.
type LocalRelay struct {
	hub *Hub
}

// NewLocalRelay wraps hub.
func NewLocalRelay(hub *Hub) *LocalRelay {
	return &LocalRelay{hub: hub}
}

func (r *LocalRelay) Publish(ctx context.Context, ev Event) error {
	r.hub.Publish(ctx, ev)
	return nil
}

type pubSubClient interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channel string) (*redis.PubSub, error)
}

// RedisRelay publishes events on a Redis channel; Run feeds messages from the
// channel into the local hub.
type RedisRelay struct {
	client  pubSubClient
	channel string
	hub     *Hub
	logg    *logger.Logger
}

// NewRedisRelay builds a relay over client.
func NewRedisRelay(client pubSubClient, channel string, hub *Hub, logg *logger.Logger) (*RedisRelay, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if channel == "" {
		return nil, fmt.Errorf("relay channel required")
	}
	if hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisRelay{client: client, channel: channel, hub: hub, logg: logg}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Name, err)
	}
	return nil
}

// Run subscribes and blocks until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}
	defer sub.Close()

	r.logg.Info(r.logg.WithField(ctx, "channel", r.channel), "realtime.relay.subscribed")
	r.consume(ctx, sub.Channel())
	return nil
}

func (r *RedisRelay) consume(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			r.deliver(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(ctx context.Context, payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "realtime.relay.decode_failed")
		return
	}
	r.hub.Publish(ctx, ev)
}
