// Package bucket holds the timer-free limiter primitives. All time handling
// is lazy: state catches up to the supplied instant on access. Neither type
// is safe for concurrent use; stores guard them with a per-record mutex.
package bucket

import (
	"math"
	"time"
)

// TokenBucket allows bursts up to Capacity and refills continuously at
// RefillPerSecond. Invariant: 0 <= tokens <= capacity.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	rate       float64
	lastRefill time.Time
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(capacity uint, refillPerSecond float64, now time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		rate:       refillPerSecond,
		lastRefill: now,
	}
}

// Capacity returns the burst allowance.
func (b *TokenBucket) Capacity() int {
	return int(b.capacity)
}

// TryConsume refills for the time elapsed since the last access and debits n
// tokens if they are all available. There is no partial consumption.
func (b *TokenBucket) TryConsume(n uint, now time.Time) bool {
	b.tokens = b.level(now)
	if now.After(b.lastRefill) {
		b.lastRefill = now
	}
	if float64(n) > b.tokens {
		return false
	}
	b.tokens -= float64(n)
	return true
}

// Tokens returns the level the bucket would have at now without mutating it.
func (b *TokenBucket) Tokens(now time.Time) float64 {
	return b.level(now)
}

// RetryAfter returns how long until n tokens are available. A request larger
// than the capacity never becomes available.
func (b *TokenBucket) RetryAfter(n uint, now time.Time) time.Duration {
	if float64(n) > b.capacity || b.rate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	deficit := float64(n) - b.level(now)
	if deficit <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(deficit / b.rate * float64(time.Second)))
}

// level computes the refilled token count. A clock that moved backwards
// refills nothing.
func (b *TokenBucket) level(now time.Time) float64 {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return b.tokens
	}
	return math.Min(b.capacity, b.tokens+elapsed*b.rate)
}
