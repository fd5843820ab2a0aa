package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dentalespejo/clinic-platform/pkg/logging"
)

// AvailabilityCache keeps the per-date occupied-slot set in Redis so the
// public availability endpoint does not hit Postgres on every date change.
// Every write that touches a date must invalidate that date's entry.
type AvailabilityCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewAvailabilityCache creates a cache with the given entry TTL.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *AvailabilityCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityCache{redis: client, ttl: ttl, logger: logger}
}

func (c *AvailabilityCache) key(date string) string {
	return "occupied:" + date
}

// Get returns the cached occupied set for a date. The second return value
// is false on a miss.
func (c *AvailabilityCache) Get(ctx context.Context, date string) ([]string, bool, error) {
	data, err := c.redis.Get(ctx, c.key(date)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("appointments: cache get: %w", err)
	}
	var times []string
	if err := json.Unmarshal(data, &times); err != nil {
		// A corrupt entry behaves as a miss; the next Set overwrites it.
		c.logger.Warn("availability cache entry corrupt, dropping", "date", date, "error", err)
		_ = c.redis.Del(ctx, c.key(date)).Err()
		return nil, false, nil
	}
	return times, true, nil
}

// Set stores the occupied set for a date.
func (c *AvailabilityCache) Set(ctx context.Context, date string, times []string) error {
	if times == nil {
		times = []string{}
	}
	data, err := json.Marshal(times)
	if err != nil {
		return fmt.Errorf("appointments: cache marshal: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("appointments: cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached set for a date.
func (c *AvailabilityCache) Invalidate(ctx context.Context, date string) error {
	if err := c.redis.Del(ctx, c.key(date)).Err(); err != nil {
		return fmt.Errorf("appointments: cache invalidate: %w", err)
	}
	return nil
}
