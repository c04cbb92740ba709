package ratelimit

import (
	"context"
	"sync"
	"time"

	"shieldgate/internal/admission/bucket"
	"shieldgate/internal/admission/models"
	platformsync "shieldgate/pkg/platform/sync"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
	dayWindow    = 24 * time.Hour
)

// InMemoryStore keeps limiter state in a sharded map. The shard lock is held
// only to find or insert a record; decisions run under the record's own lock.
type InMemoryStore struct {
	records *platformsync.ShardedMap[*record]
}

// record is the limiter state of one (client, class) pair.
type record struct {
	mu       sync.Mutex
	burst    *bucket.TokenBucket
	windows  [3]*bucket.SlidingWindow
	lastSeen time.Time
	// evicted is set under mu when the sweep or a reset removed the record
	// from the map. A checker holding a stale pointer retries the lookup.
	evicted bool
}

var windowGates = [3]models.Gate{models.GateMinute, models.GateHour, models.GateDay}

func newRecord(policy models.Policy, now time.Time) *record {
	return &record{
		burst: bucket.NewTokenBucket(uint(policy.BurstCapacity), policy.RefillPerSecond, now),
		windows: [3]*bucket.SlidingWindow{
			bucket.NewSlidingWindow(minuteWindow, policy.PerMinute),
			bucket.NewSlidingWindow(hourWindow, policy.PerHour),
			bucket.NewSlidingWindow(dayWindow, policy.PerDay),
		},
		lastSeen: now,
	}
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: platformsync.NewShardedMap[*record](),
	}
}

// Check evaluates the windows first and the burst bucket last so the bucket
// is only debited for admitted requests.
func (s *InMemoryStore) Check(_ context.Context, key string, policy models.Policy, now time.Time) (*models.RateLimitResult, error) {
	for {
		rec := s.records.GetOrCreate(key, func() *record { return newRecord(policy, now) })
		rec.mu.Lock()
		if rec.evicted {
			rec.mu.Unlock()
			continue
		}
		result := rec.check(now)
		rec.mu.Unlock()
		return result, nil
	}
}

func (r *record) check(now time.Time) *models.RateLimitResult {
	if now.After(r.lastSeen) {
		r.lastSeen = now
	}
	minute := r.windows[0]

	for i, w := range r.windows {
		if !w.HasCapacity(now) {
			return &models.RateLimitResult{
				Gate:       windowGates[i],
				Limit:      w.Limit(),
				Remaining:  r.remaining(now),
				ResetAt:    w.ResetAt(now),
				RetryAfter: w.RetryAfter(now),
			}
		}
	}
	if !r.burst.TryConsume(1, now) {
		return &models.RateLimitResult{
			Gate:       models.GateBurst,
			Limit:      r.burst.Capacity(),
			Remaining:  r.remaining(now),
			ResetAt:    minute.ResetAt(now),
			RetryAfter: r.burst.RetryAfter(1, now),
		}
	}

	for _, w := range r.windows {
		w.Record(now)
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     minute.Limit(),
		Remaining: r.remaining(now),
		ResetAt:   minute.ResetAt(now),
	}
}

func (r *record) remaining(now time.Time) models.Remaining {
	return models.Remaining{
		Minute: r.windows[0].Remaining(now),
		Hour:   r.windows[1].Remaining(now),
		Day:    r.windows[2].Remaining(now),
	}
}

// Reset drops the records of keys. Concurrent checks on a dropped record
// retry against a fresh one.
func (s *InMemoryStore) Reset(_ context.Context, keys ...string) error {
	for _, key := range keys {
		rec, ok := s.records.LoadAndDelete(key)
		if !ok {
			continue
		}
		rec.mu.Lock()
		rec.evicted = true
		rec.mu.Unlock()
	}
	return nil
}

// Sweep evicts records that saw no request for a full day window; by then
// every window is empty and the bucket has refilled.
func (s *InMemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	evicted := s.records.Sweep(func(_ string, rec *record) bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		if now.Sub(rec.lastSeen) < dayWindow {
			return false
		}
		rec.evicted = true
		return true
	})
	return evicted, nil
}

// Len returns the number of tracked (client, class) pairs.
func (s *InMemoryStore) Len() int {
	return s.records.Len()
}
