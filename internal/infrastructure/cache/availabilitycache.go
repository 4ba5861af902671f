package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/milkrun-inc/milkrun/internal/application/subscription/usecases"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

const (
	availabilityKeyPrefix = "milkrun:availability:"
	baseAvailabilityTTL   = 15 * time.Minute
	availabilityTTLJitter = 5 * time.Minute // TTL range: 15-20 min (anti-stampede)
)

// RedisAvailabilityCache caches per-product available reschedule dates.
// Entries are keyed by the current date the availability was computed against
// and invalidated wholesale whenever the subscription's schedule mutates.
type RedisAvailabilityCache struct {
	client *redis.Client
	logger logger.Interface
}

// NewRedisAvailabilityCache creates a new Redis-based availability cache.
func NewRedisAvailabilityCache(client *redis.Client, logger logger.Interface) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{
		client: client,
		logger: logger,
	}
}

var _ usecases.AvailabilityCache = (*RedisAvailabilityCache)(nil)

func (c *RedisAvailabilityCache) key(subscriptionSID, subscriptionProductID, currentDate string, consecutiveDays int) string {
	return fmt.Sprintf("%s%s:%s:%s:%d", availabilityKeyPrefix, subscriptionSID, subscriptionProductID, currentDate, consecutiveDays)
}

// Get returns the cached date list and whether it was present. Cache errors
// are logged and reported as misses.
func (c *RedisAvailabilityCache) Get(ctx context.Context, subscriptionSID, subscriptionProductID, currentDate string, consecutiveDays int) ([]vo.DeliveryDate, bool) {
	key := c.key(subscriptionSID, subscriptionProductID, currentDate, consecutiveDays)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warnw("failed to read availability cache", "key", key, "error", err)
		return nil, false
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Warnw("corrupt availability cache entry", "key", key, "error", err)
		return nil, false
	}

	dates := make([]vo.DeliveryDate, 0, len(raw))
	for _, s := range raw {
		d, err := vo.ParseDeliveryDate(s)
		if err != nil {
			c.logger.Warnw("corrupt availability cache entry", "key", key, "error", err)
			return nil, false
		}
		dates = append(dates, d)
	}
	return dates, true
}

// Set stores the date list with a jittered TTL.
func (c *RedisAvailabilityCache) Set(ctx context.Context, subscriptionSID, subscriptionProductID, currentDate string, consecutiveDays int, dates []vo.DeliveryDate) error {
	key := c.key(subscriptionSID, subscriptionProductID, currentDate, consecutiveDays)

	raw := make([]string, 0, len(dates))
	for _, d := range dates {
		raw = append(raw, d.String())
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal availability dates: %w", err)
	}

	ttl := baseAvailabilityTTL + rand.N(availabilityTTLJitter)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set availability cache: %w", err)
	}
	return nil
}

// Invalidate drops every cached availability list for the subscription.
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, subscriptionSID string) error {
	pattern := availabilityKeyPrefix + subscriptionSID + ":*"

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan availability cache keys: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate availability cache: %w", err)
		}
	}

	c.logger.Debugw("invalidated availability cache", "subscription_sid", subscriptionSID, "keys", len(keys))
	return nil
}
