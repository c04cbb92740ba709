package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldgate/internal/admission/models"
	"shieldgate/pkg/testutil"
)

func TestInMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	policy := models.BruteForcePolicy{Threshold: 2, Lookback: time.Hour, BlockDuration: 3 * time.Hour}

	_, err := store.RecordFailure(ctx, testutil.PublicIP1, policy, testutil.Epoch)
	require.NoError(t, err)
	for range 2 {
		_, err = store.RecordFailure(ctx, testutil.PublicIP2, policy, testutil.Epoch)
		require.NoError(t, err)
	}

	evicted, err := store.Sweep(ctx, testutil.Epoch.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, evicted, "failures still inside the lookback")

	evicted, err = store.Sweep(ctx, testutil.Epoch.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, evicted, "only the unblocked ip goes; the other is still blocked")
	assert.Equal(t, 1, store.Len())

	evicted, err = store.Sweep(ctx, testutil.Epoch.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Zero(t, store.Len())
}

func TestInMemoryStore_ConcurrentFailuresTriggerOnce(t *testing.T) {
	store := NewInMemoryStore()
	policy := models.BruteForcePolicy{Threshold: 5, Lookback: time.Hour, BlockDuration: time.Hour}

	result := testutil.RunConcurrent(50, func(int) error {
		res, err := store.RecordFailure(context.Background(), testutil.PublicIP1, policy, testutil.Epoch)
		if err != nil {
			return err
		}
		if res.BruteForceDetected {
			return nil
		}
		return testutil.ErrDenied
	})
	assert.Equal(t, int32(1), result.Successes, "exactly one failure starts the block")
	assert.Zero(t, result.Errors)
}

func TestInMemoryStore_LateFailureExpiresInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	policy := models.BruteForcePolicy{Threshold: 10, Lookback: time.Hour, BlockDuration: time.Hour}

	_, err := store.RecordFailure(ctx, testutil.PublicIP1, policy, testutil.Epoch.Add(10*time.Minute))
	require.NoError(t, err)
	_, err = store.RecordFailure(ctx, testutil.PublicIP1, policy, testutil.Epoch)
	require.NoError(t, err)

	res, err := store.RecordFailure(ctx, testutil.PublicIP1, policy, testutil.Epoch.Add(61*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, res.FailedAttempts, "the earliest failure left the lookback")
}
