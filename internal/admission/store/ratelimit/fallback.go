package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"shieldgate/internal/admission/metrics"
	"shieldgate/internal/admission/models"
	"shieldgate/internal/admission/ports"
	"shieldgate/pkg/platform/circuit"
)

// FallbackStore routes checks to a primary store and degrades to a local
// in-memory store while the primary keeps failing. Local decisions are marked
// Degraded so the response can say so.
type FallbackStore struct {
	primary ports.RateLimitStore
	local   *InMemoryStore
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// FallbackOption configures a FallbackStore.
type FallbackOption func(*FallbackStore)

func WithLogger(logger *slog.Logger) FallbackOption {
	return func(s *FallbackStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) FallbackOption {
	return func(s *FallbackStore) {
		s.metrics = m
	}
}

// NewFallbackStore wraps primary with breaker.
func NewFallbackStore(primary ports.RateLimitStore, breaker *circuit.Breaker, opts ...FallbackOption) *FallbackStore {
	s := &FallbackStore{
		primary: primary,
		local:   NewInMemoryStore(),
		breaker: breaker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check never returns an error: a primary failure is answered locally.
func (s *FallbackStore) Check(ctx context.Context, key string, policy models.Policy, now time.Time) (*models.RateLimitResult, error) {
	if s.breaker.Allow() {
		result, err := s.primary.Check(ctx, key, policy, now)
		if err == nil {
			if change := s.breaker.RecordSuccess(); change.Closed {
				s.logger.InfoContext(ctx, "rate limit store recovered", "breaker", s.breaker.Name())
			}
			s.metrics.SetFallbackState(int(s.breaker.State()))
			return result, nil
		}
		if change := s.breaker.RecordFailure(); change.Opened {
			s.logger.WarnContext(ctx, "rate limit store failing, using local fallback",
				"breaker", s.breaker.Name(),
				"error", err,
			)
		} else {
			s.logger.DebugContext(ctx, "rate limit store check failed", "error", err)
		}
		s.metrics.SetFallbackState(int(s.breaker.State()))
	}

	result, err := s.local.Check(ctx, key, policy, now)
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	s.metrics.IncrementFallbackDecisions()
	return result, nil
}

// Reset clears both stores. A primary failure is reported after the local
// state has been cleared.
func (s *FallbackStore) Reset(ctx context.Context, keys ...string) error {
	if err := s.local.Reset(ctx, keys...); err != nil {
		return err
	}
	return s.primary.Reset(ctx, keys...)
}

// Sweep evicts idle fallback records; the primary expires its own keys.
func (s *FallbackStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	return s.local.Sweep(ctx, now)
}

// State exposes the breaker state.
func (s *FallbackStore) State() circuit.State {
	return s.breaker.State()
}
