package reputation

import (
	"cmp"
	"context"
	_ "embed" // reputation.lua
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shieldgate/internal/admission/models"
	dErrors "shieldgate/pkg/domain-errors"
)

//go:embed reputation.lua
var reputationScript string

var recordFailureLua = redis.NewScript(reputationScript)

const (
	keyPrefix   = "rep:{"
	failSuffix  = "}:fail"
	blockSuffix = "}:block"
	scanCount   = 100
)

func failKey(ip string) string  { return keyPrefix + ip + failSuffix }
func blockKey(ip string) string { return keyPrefix + ip + blockSuffix }

// RedisStore shares reputation between instances. The block marker carries
// its end time as the value and a matching TTL; reads compare the value with
// the caller's clock.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a store over a configured client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) BlockedUntil(ctx context.Context, ip string, now time.Time) (time.Time, error) {
	untilMs, err := s.client.Get(ctx, blockKey(ip)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get block for ip: %w", err)
	}
	if untilMs <= now.UnixMilli() {
		return time.Time{}, nil
	}
	return time.UnixMilli(untilMs).UTC(), nil
}

func (s *RedisStore) RecordFailure(ctx context.Context, ip string, policy models.BruteForcePolicy, now time.Time) (*models.FailureResult, error) {
	nowMs := now.UnixMilli()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())
	raw, err := recordFailureLua.Run(ctx, s.client, []string{failKey(ip), blockKey(ip)},
		nowMs,
		policy.Lookback.Milliseconds(),
		policy.Threshold,
		policy.BlockDuration.Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("record failure: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("reputation script returned %d values", len(raw))
	}
	result := &models.FailureResult{
		FailedAttempts:     int(raw[0]),
		BruteForceDetected: raw[1] == 1,
	}
	if raw[2] > 0 {
		result.BlockedUntil = time.UnixMilli(raw[2]).UTC()
	}
	return result, nil
}

func (s *RedisStore) Unblock(ctx context.Context, ip string) error {
	n, err := s.client.Del(ctx, failKey(ip), blockKey(ip)).Result()
	if err != nil {
		return fmt.Errorf("unblock ip: %w", err)
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "no reputation record for ip")
	}
	return nil
}

// ListBlocked scans block markers. Cost grows with the keyspace, which is
// acceptable for an admin endpoint.
func (s *RedisStore) ListBlocked(ctx context.Context, now time.Time) ([]models.BlockedIP, error) {
	var (
		blocked []models.BlockedIP
		cursor  uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*"+blockSuffix, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan blocks: %w", err)
		}
		for _, key := range keys {
			ip := strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), blockSuffix)
			entry, ok, err := s.blockEntry(ctx, ip, key, now)
			if err != nil {
				return nil, err
			}
			if ok {
				blocked = append(blocked, entry)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	slices.SortFunc(blocked, func(a, b models.BlockedIP) int { return cmp.Compare(a.IP, b.IP) })
	return blocked, nil
}

func (s *RedisStore) blockEntry(ctx context.Context, ip, key string, now time.Time) (models.BlockedIP, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return models.BlockedIP{}, false, nil
	}
	if err != nil {
		return models.BlockedIP{}, false, fmt.Errorf("get block %s: %w", key, err)
	}
	untilMs, err := strconv.ParseInt(val, 10, 64)
	if err != nil || untilMs <= now.UnixMilli() {
		return models.BlockedIP{}, false, nil
	}
	failures, err := s.client.ZCard(ctx, failKey(ip)).Result()
	if err != nil {
		return models.BlockedIP{}, false, fmt.Errorf("count failures: %w", err)
	}
	return models.BlockedIP{
		IP:             ip,
		BlockedUntil:   time.UnixMilli(untilMs).UTC(),
		FailedAttempts: int(failures),
	}, true, nil
}
