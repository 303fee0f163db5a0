package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "event:"

// RedisPubSub bridges event rooms across instances with Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for event rooms.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// RoomChannel returns the Redis channel of an event room.
func RoomChannel(eventID uuid.UUID) string {
	return channelPrefix + eventID.String()
}

// PublishEvent publishes an envelope to the event's Redis channel.
func (r *RedisPubSub) PublishEvent(ctx context.Context, eventID uuid.UUID, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, RoomChannel(eventID), body).Err()
}

// SubscribeEvent subscribes to an event's Redis channel and calls handler for each envelope.
// Returns a cancel function to stop the subscription.
func (r *RedisPubSub) SubscribeEvent(eventID uuid.UUID, handler func(env Envelope)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, RoomChannel(eventID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.logger.Warn("invalid room payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				handler(env)
			}
		}
	}()
	return cancelCtx, nil
}
