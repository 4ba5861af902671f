package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/milkrun-inc/milkrun/internal/application/subscription/usecases"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

const deliveryEventChannel = "milkrun:subscription:events"

// DeliveryEventEnvelope is the wire shape of a published domain event.
type DeliveryEventEnvelope struct {
	EventType       string `json:"event_type"`
	AggregateID     uint   `json:"aggregate_id"`
	SubscriptionSID string `json:"subscription_sid"`
	Timestamp       int64  `json:"timestamp"`
}

// DeliveryEventHandler is a callback function for handling delivery events
// received from other instances.
type DeliveryEventHandler func(ctx context.Context, event DeliveryEventEnvelope)

// RedisDeliveryEventBus publishes domain events to Redis Pub/Sub for
// cross-instance distribution and lets instances subscribe to them.
type RedisDeliveryEventBus struct {
	client *redis.Client
	logger logger.Interface
}

// NewRedisDeliveryEventBus creates a new Redis-based delivery event bus.
func NewRedisDeliveryEventBus(client *redis.Client, logger logger.Interface) *RedisDeliveryEventBus {
	return &RedisDeliveryEventBus{
		client: client,
		logger: logger,
	}
}

var _ usecases.EventPublisher = (*RedisDeliveryEventBus)(nil)

// Publish sends the event to the shared channel. Publishing is best effort:
// callers log the error and move on.
func (b *RedisDeliveryEventBus) Publish(ctx context.Context, event usecases.DomainEvent) error {
	envelope := DeliveryEventEnvelope{
		EventType:       event.GetEventType(),
		AggregateID:     event.GetAggregateID(),
		SubscriptionSID: event.GetSubscriptionSID(),
		Timestamp:       event.GetTimestamp().Unix(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, deliveryEventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debugw("published delivery event",
		"event_type", envelope.EventType,
		"subscription_sid", envelope.SubscriptionSID,
	)
	return nil
}

// Subscribe listens for delivery events and invokes the handler for each one.
// It blocks until the context is cancelled, so run it in its own goroutine.
func (b *RedisDeliveryEventBus) Subscribe(ctx context.Context, handler DeliveryEventHandler) error {
	sub := b.client.Subscribe(ctx, deliveryEventChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to delivery events: %w", err)
	}

	b.logger.Infow("subscribed to delivery events", "channel", deliveryEventChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var envelope DeliveryEventEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Warnw("failed to unmarshal delivery event", "payload", msg.Payload, "error", err)
				continue
			}
			handler(ctx, envelope)
		}
	}
}
