package ratelimit

import (
	"context"
	_ "embed" // limiter.lua
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shieldgate/internal/admission/models"
)

//go:embed limiter.lua
var limiterScript string

var limiterLua = redis.NewScript(limiterScript)

// RedisStore shares limiter state between instances. The whole four-gate
// decision runs in one Lua script so concurrent checks on the same key are
// serialized by Redis. Idle keys expire through PEXPIRE.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a store over a configured client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Keys share a hash tag so a cluster places them on one slot.
func redisKeys(key string) []string {
	return []string{
		fmt.Sprintf("{%s}:tb", key),
		fmt.Sprintf("{%s}:m", key),
		fmt.Sprintf("{%s}:h", key),
		fmt.Sprintf("{%s}:d", key),
	}
}

var gateByIndex = map[int64]models.Gate{
	1: models.GateMinute,
	2: models.GateHour,
	3: models.GateDay,
	4: models.GateBurst,
}

// Check runs the limiter script. now is passed in so every instance agrees on
// the clock the caller used.
func (s *RedisStore) Check(ctx context.Context, key string, policy models.Policy, now time.Time) (*models.RateLimitResult, error) {
	nowMs := now.UnixMilli()
	// The member must be unique per request; equal timestamps would collapse
	// into one sorted set entry.
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	raw, err := limiterLua.Run(ctx, s.client, redisKeys(key),
		nowMs,
		policy.BurstCapacity,
		policy.RefillPerSecond,
		member,
		minuteWindow.Milliseconds(),
		hourWindow.Milliseconds(),
		dayWindow.Milliseconds(),
		policy.PerMinute,
		policy.PerHour,
		policy.PerDay,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("run limiter script for %s: %w", key, err)
	}
	if len(raw) != 7 {
		return nil, fmt.Errorf("limiter script for %s returned %d values", key, len(raw))
	}

	result := &models.RateLimitResult{
		Allowed: raw[0] == 1,
		Remaining: models.Remaining{
			Minute: int(raw[2]),
			Hour:   int(raw[3]),
			Day:    int(raw[4]),
		},
		RetryAfter: time.Duration(raw[5]) * time.Millisecond,
		ResetAt:    time.UnixMilli(raw[6]).UTC(),
	}
	if result.Allowed {
		result.Limit = policy.PerMinute
		return result, nil
	}
	result.Gate = gateByIndex[raw[1]]
	result.Limit = gateLimit(result.Gate, policy)
	return result, nil
}

func gateLimit(gate models.Gate, policy models.Policy) int {
	switch gate {
	case models.GateMinute:
		return policy.PerMinute
	case models.GateHour:
		return policy.PerHour
	case models.GateDay:
		return policy.PerDay
	default:
		return policy.BurstCapacity
	}
}

// Reset deletes the bucket and windows of keys. Each DEL stays within one
// hash slot.
func (s *RedisStore) Reset(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.client.Del(ctx, redisKeys(key)...).Err(); err != nil {
			return fmt.Errorf("reset rate limit key %s: %w", key, err)
		}
	}
	return nil
}
