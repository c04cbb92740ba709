// Package ratelimit enforces the per-client burst bucket and minute, hour and
// day windows of each endpoint class.
//
// Usage:
//
//	svc, _ := ratelimit.New(store, ratelimit.WithConfig(cfg))
//	class := svc.ClassFor(r.Method, r.URL.Path)
//	result, err := svc.Check(ctx, clientKey, class)
//	if err == nil && !result.Allowed {
//	    // 429 with Retry-After from result.RetryAfter
//	}
package ratelimit

import (
	"context"
	"errors"
	"log/slog"

	"shieldgate/internal/admission/config"
	"shieldgate/internal/admission/metrics"
	"shieldgate/internal/admission/models"
	"shieldgate/internal/admission/ports"
	dErrors "shieldgate/pkg/domain-errors"
	"shieldgate/pkg/requestcontext"
)

// Service resolves class policies and delegates decisions to the store.
// Safe for concurrent use.
type Service struct {
	store   ports.RateLimitStore
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithConfig overrides the default admission configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a rate limiting service.
func New(store ports.RateLimitStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("rate limit store is required")
	}
	svc := &Service{
		store:  store,
		config: config.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ClassFor resolves the endpoint class of a request.
func (s *Service) ClassFor(method, path string) models.EndpointClass {
	return s.config.ClassFor(method, path)
}

// Check evaluates the four gates for clientKey at the request time carried
// by ctx. A store failure is returned as CodeUnavailable.
func (s *Service) Check(ctx context.Context, clientKey string, class models.EndpointClass) (*models.RateLimitResult, error) {
	if clientKey == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "client key is required")
	}
	key := models.NewRateLimitKey(clientKey, class).String()
	result, err := s.store.Check(ctx, key, s.config.PolicyFor(class), requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}
	if !result.Allowed {
		s.metrics.IncrementDenial(string(result.Gate), class.String())
	}
	return result, nil
}

// Reset clears the state of clientKey in every configured class.
func (s *Service) Reset(ctx context.Context, clientKey string) error {
	if clientKey == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "client key is required")
	}
	classes := s.config.ClassNames()
	keys := make([]string, 0, len(classes))
	for _, class := range classes {
		keys = append(keys, models.NewRateLimitKey(clientKey, class).String())
	}
	if err := s.store.Reset(ctx, keys...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reset rate limit state")
	}
	s.logger.InfoContext(ctx, "rate limit state reset", "classes", len(keys))
	return nil
}
