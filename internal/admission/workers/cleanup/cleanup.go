// Package cleanup periodically evicts idle in-memory admission state. It never
// takes part in admission decisions: expiry is evaluated lazily by the stores,
// the sweep only bounds memory.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shieldgate/internal/admission/metrics"
	"shieldgate/internal/admission/ports"
)

// Result contains the outcome of one sweep.
type Result struct {
	RateLimitsEvicted int
	ReputationEvicted int
	Duration          time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock sets the time source passed to the sweepers.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Service runs the sweep on a ticker.
type Service struct {
	rateLimits ports.Sweeper
	reputation ports.Sweeper
	logger     *slog.Logger
	interval   time.Duration
	metrics    *metrics.Metrics
	clock      func() time.Time
}

// New creates the worker. Either sweeper may be nil when its store expires
// state on its own, as the Redis stores do through key TTLs.
func New(rateLimits, reputation ports.Sweeper, opts ...Option) *Service {
	service := &Service{
		rateLimits: rateLimits,
		reputation: reputation,
		logger:     slog.Default(),
		interval:   5 * time.Minute,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Start sweeps every interval until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "admission_cleanup_failed",
					"error", err,
					"duration_ms", res.Duration.Milliseconds(),
				)
				continue
			}
			s.logger.InfoContext(ctx, "admission_cleanup_completed",
				"rate_limit_records_evicted", res.RateLimitsEvicted,
				"reputation_records_evicted", res.ReputationEvicted,
				"duration_ms", res.Duration.Milliseconds(),
			)
		case <-ctx.Done():
			s.logger.Info("admission cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce sweeps both stores once. A failing sweeper does not stop the other;
// the returned Result is never nil.
func (s *Service) RunOnce(ctx context.Context) (*Result, error) {
	started := time.Now()
	now := s.clock()
	res := &Result{}

	var errs []error
	if s.rateLimits != nil {
		n, err := s.rateLimits.Sweep(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep rate limits: %w", err))
		}
		res.RateLimitsEvicted = n
	}
	if s.reputation != nil {
		n, err := s.reputation.Sweep(ctx, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep reputation: %w", err))
		}
		res.ReputationEvicted = n
	}
	res.Duration = time.Since(started)

	s.metrics.AddCleanupEvictions("ratelimit", res.RateLimitsEvicted)
	s.metrics.AddCleanupEvictions("reputation", res.ReputationEvicted)
	s.metrics.ObserveCleanupDuration(res.Duration)
	if err := errors.Join(errs...); err != nil {
		s.metrics.IncrementCleanupRuns("error")
		return res, err
	}
	s.metrics.IncrementCleanupRuns("success")
	return res, nil
}
