// Package ports defines the storage interfaces of the admission module.
// The in-memory and Redis stores implement them; services depend only on
// these interfaces.
package ports

import (
	"context"
	"time"

	"shieldgate/internal/admission/models"
)

// RateLimitStore holds burst buckets and sliding windows per key.
type RateLimitStore interface {
	// Check evaluates every gate of policy for key at now. When all pass, the
	// request is recorded in each window and the bucket is debited; otherwise
	// nothing is recorded.
	Check(ctx context.Context, key string, policy models.Policy, now time.Time) (*models.RateLimitResult, error)

	// Reset removes all limiter state for the given keys.
	Reset(ctx context.Context, keys ...string) error
}

// ReputationStore holds failure history and blocks per IP. Whitelisting is
// decided by the service before the store is consulted.
type ReputationStore interface {
	// BlockedUntil returns the end of an active block, or the zero time.
	BlockedUntil(ctx context.Context, ip string, now time.Time) (time.Time, error)

	// RecordFailure appends a failure and blocks the IP once the threshold is
	// reached within the lookback.
	RecordFailure(ctx context.Context, ip string, policy models.BruteForcePolicy, now time.Time) (*models.FailureResult, error)

	// Unblock lifts a block and forgets the failure history.
	Unblock(ctx context.Context, ip string) error

	// ListBlocked returns the blocks active at now.
	ListBlocked(ctx context.Context, now time.Time) ([]models.BlockedIP, error)
}

// Sweeper evicts idle entries from an in-process store.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (evicted int, err error)
}
