package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"vsla-ledger/internal/domain/rules"
)

// DefaultEligibilityTTL bounds how long an assessed evaluation is served from redis.
const DefaultEligibilityTTL = 10 * time.Minute

// EligibilityCache keeps the last assessed business rules of a group in redis.
type EligibilityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEligibilityCache(rdb *redis.Client, ttl time.Duration) *EligibilityCache {
	if ttl <= 0 {
		ttl = DefaultEligibilityTTL
	}
	return &EligibilityCache{rdb: rdb, ttl: ttl}
}

func eligibilityKey(groupID string) string { return "vsla:rules:" + groupID }

// Get reports a miss as (nil, false, nil).
func (c *EligibilityCache) Get(ctx context.Context, groupID string) (*rules.GroupBusinessRules, bool, error) {
	raw, err := c.rdb.Get(ctx, eligibilityKey(groupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out rules.GroupBusinessRules
	if err := json.Unmarshal(raw, &out); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = c.rdb.Del(ctx, eligibilityKey(groupID)).Err()
		return nil, false, nil
	}
	return &out, true, nil
}

func (c *EligibilityCache) Set(ctx context.Context, r *rules.GroupBusinessRules) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, eligibilityKey(r.GroupID), raw, c.ttl).Err()
}

func (c *EligibilityCache) Invalidate(ctx context.Context, groupID string) error {
	return c.rdb.Del(ctx, eligibilityKey(groupID)).Err()
}
