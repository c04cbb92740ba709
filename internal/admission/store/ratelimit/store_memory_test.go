package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldgate/internal/admission/models"
	"shieldgate/pkg/testutil"
)

func TestInMemoryStore_ConcurrentChecksRespectCeiling(t *testing.T) {
	store := NewInMemoryStore()
	policy := models.Policy{BurstCapacity: 1000, RefillPerSecond: 1000, PerMinute: 50, PerHour: 1000, PerDay: 1000}

	result := testutil.RunConcurrent(200, func(int) error {
		res, err := store.Check(context.Background(), "hot", policy, testutil.Epoch)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return testutil.ErrDenied
		}
		return nil
	})

	assert.Equal(t, int32(50), result.Successes)
	assert.Equal(t, int32(150), result.Denied)
	assert.Zero(t, result.Errors)
}

func TestInMemoryStore_SweepEvictsIdleRecords(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	policy := models.Policy{BurstCapacity: 1, RefillPerSecond: 1, PerMinute: 1, PerHour: 1, PerDay: 1}

	_, err := store.Check(ctx, "idle", policy, testutil.Epoch)
	require.NoError(t, err)
	_, err = store.Check(ctx, "active", policy, testutil.Epoch.Add(23*time.Hour))
	require.NoError(t, err)

	evicted, err := store.Sweep(ctx, testutil.Epoch.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Len())
}

// Justification: a check that fetched a record just before the sweep evicted
// it must not write into the orphan; it retries against a fresh record.
func TestInMemoryStore_CheckRetriesAfterEviction(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	policy := models.Policy{BurstCapacity: 5, RefillPerSecond: 1, PerMinute: 5, PerHour: 5, PerDay: 5}

	_, err := store.Check(ctx, "k", policy, testutil.Epoch)
	require.NoError(t, err)
	stale, ok := store.records.Get("k")
	require.True(t, ok)

	_, err = store.Sweep(ctx, testutil.Epoch.Add(25*time.Hour))
	require.NoError(t, err)
	stale.mu.Lock()
	assert.True(t, stale.evicted)
	stale.mu.Unlock()

	res, err := store.Check(ctx, "k", policy, testutil.Epoch.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Remaining.Minute)

	fresh, ok := store.records.Get("k")
	require.True(t, ok)
	assert.NotSame(t, stale, fresh)
}

func TestInMemoryStore_SweepRacesChecks(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	policy := models.Policy{BurstCapacity: 1000, RefillPerSecond: 1000, PerMinute: 1000, PerHour: 1000, PerDay: 1000}
	later := testutil.Epoch.Add(48 * time.Hour)

	result := testutil.RunConcurrent(100, func(idx int) error {
		if idx%10 == 0 {
			_, err := store.Sweep(ctx, later)
			return err
		}
		_, err := store.Check(ctx, "k", policy, testutil.Epoch)
		return err
	})

	assert.Zero(t, result.Errors)
	assert.LessOrEqual(t, store.Len(), 1)
}
