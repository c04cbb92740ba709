package reputation

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"shieldgate/internal/admission/bucket"
	"shieldgate/internal/admission/models"
	dErrors "shieldgate/pkg/domain-errors"
	platformsync "shieldgate/pkg/platform/sync"
)

// InMemoryStore tracks failures and blocks per IP in a sharded map.
type InMemoryStore struct {
	records *platformsync.ShardedMap[*record]
}

type record struct {
	mu           sync.Mutex
	failures     []time.Time
	lookback     time.Duration
	blockedUntil time.Time
	evicted      bool
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: platformsync.NewShardedMap[*record](),
	}
}

// BlockedUntil expires blocks lazily: a block in the past is simply ignored.
func (s *InMemoryStore) BlockedUntil(_ context.Context, ip string, now time.Time) (time.Time, error) {
	rec, ok := s.records.Get(ip)
	if !ok {
		return time.Time{}, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.evicted || !now.Before(rec.blockedUntil) {
		return time.Time{}, nil
	}
	return rec.blockedUntil, nil
}

// RecordFailure appends a failure and starts a block when the pruned count
// reaches the threshold. Failures during an active block are counted but do
// not extend it.
func (s *InMemoryStore) RecordFailure(_ context.Context, ip string, policy models.BruteForcePolicy, now time.Time) (*models.FailureResult, error) {
	for {
		rec := s.records.GetOrCreate(ip, func() *record { return &record{} })
		rec.mu.Lock()
		if rec.evicted {
			rec.mu.Unlock()
			continue
		}
		result := rec.recordFailure(policy, now)
		rec.mu.Unlock()
		return result, nil
	}
}

func (r *record) recordFailure(policy models.BruteForcePolicy, now time.Time) *models.FailureResult {
	r.lookback = policy.Lookback
	r.prune(now)
	r.failures = bucket.InsertStamp(r.failures, now)

	result := &models.FailureResult{FailedAttempts: len(r.failures)}
	switch {
	case now.Before(r.blockedUntil):
		result.BlockedUntil = r.blockedUntil
	case len(r.failures) >= policy.Threshold:
		r.blockedUntil = now.Add(policy.BlockDuration)
		result.BlockedUntil = r.blockedUntil
		result.BruteForceDetected = true
	}
	return result
}

func (r *record) prune(now time.Time) {
	cutoff := now.Add(-r.lookback)
	i := 0
	for i < len(r.failures) && !r.failures[i].After(cutoff) {
		i++
	}
	r.failures = r.failures[i:]
}

// Unblock forgets everything known about ip.
func (s *InMemoryStore) Unblock(_ context.Context, ip string) error {
	rec, ok := s.records.LoadAndDelete(ip)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "no reputation record for ip")
	}
	rec.mu.Lock()
	rec.evicted = true
	rec.mu.Unlock()
	return nil
}

// ListBlocked returns active blocks ordered by IP.
func (s *InMemoryStore) ListBlocked(_ context.Context, now time.Time) ([]models.BlockedIP, error) {
	var blocked []models.BlockedIP
	s.records.Range(func(ip string, rec *record) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		if now.Before(rec.blockedUntil) {
			blocked = append(blocked, models.BlockedIP{
				IP:             ip,
				BlockedUntil:   rec.blockedUntil,
				FailedAttempts: len(rec.failures),
			})
		}
	})
	slices.SortFunc(blocked, func(a, b models.BlockedIP) int { return cmp.Compare(a.IP, b.IP) })
	return blocked, nil
}

// Sweep evicts records with no active block and no failure left in the
// lookback.
func (s *InMemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	evicted := s.records.Sweep(func(_ string, rec *record) bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.prune(now)
		if len(rec.failures) > 0 || now.Before(rec.blockedUntil) {
			return false
		}
		rec.evicted = true
		return true
	})
	return evicted, nil
}

// Len returns the number of tracked IPs.
func (s *InMemoryStore) Len() int {
	return s.records.Len()
}
