// Package reputation tracks authentication failures per IP and blocks
// addresses that cross the brute-force threshold. Whitelisted addresses are
// never blocked and their failures are not recorded.
package reputation

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"shieldgate/internal/admission/config"
	"shieldgate/internal/admission/metrics"
	"shieldgate/internal/admission/models"
	"shieldgate/internal/admission/ports"
	"shieldgate/internal/platform/privacy"
	dErrors "shieldgate/pkg/domain-errors"
	"shieldgate/pkg/platform/middleware/metadata"
	"shieldgate/pkg/requestcontext"
)

// Service combines the static whitelist with a ReputationStore.
type Service struct {
	store     ports.ReputationStore
	whitelist []netip.Prefix
	policy    models.BruteForcePolicy
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service instance.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithWhitelist replaces the default loopback and private ranges.
func WithWhitelist(prefixes []netip.Prefix) Option {
	return func(s *Service) {
		s.whitelist = prefixes
	}
}

// WithPolicy overrides the brute-force threshold, lookback and block length.
func WithPolicy(policy models.BruteForcePolicy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// New creates the service with the default whitelist and policy.
func New(store ports.ReputationStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("reputation store is required")
	}
	defaults := config.DefaultConfig()
	whitelist, err := metadata.ParsePrefixes(defaults.Whitelist)
	if err != nil {
		return nil, err
	}
	svc := &Service{
		store:     store,
		whitelist: whitelist,
		policy:    defaults.BruteForce.Policy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IsWhitelisted reports exact or CIDR membership. A malformed address is
// never whitelisted.
func (s *Service) IsWhitelisted(ip string) bool {
	addr, ok := parseIP(ip)
	if !ok {
		return false
	}
	for _, prefix := range s.whitelist {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// IsBlocked reports an active block. Whitelisted addresses are never blocked,
// even if the store still holds a block for them.
func (s *Service) IsBlocked(ctx context.Context, ip string) (bool, time.Time, error) {
	if s.IsWhitelisted(ip) {
		return false, time.Time{}, nil
	}
	until, err := s.store.BlockedUntil(ctx, ip, requestcontext.Now(ctx))
	if err != nil {
		return false, time.Time{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "reputation store unavailable")
	}
	return !until.IsZero(), until, nil
}

// RecordFailure counts a failed authentication from ip.
func (s *Service) RecordFailure(ctx context.Context, ip string) (*models.FailureResult, error) {
	if s.IsWhitelisted(ip) {
		return &models.FailureResult{Whitelisted: true}, nil
	}
	result, err := s.store.RecordFailure(ctx, ip, s.policy, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "reputation store unavailable")
	}
	if result.BruteForceDetected {
		s.metrics.IncrementBruteForceBlocks()
		s.logger.WarnContext(ctx, "ip blocked after repeated failures",
			"ip_prefix", privacy.AnonymizeIP(ip),
			"failed_attempts", result.FailedAttempts,
			"blocked_until", result.BlockedUntil,
		)
	}
	return result, nil
}

// Unblock lifts a block. ip must be a valid address.
func (s *Service) Unblock(ctx context.Context, ip string) error {
	addr, ok := parseIP(ip)
	if !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid ip address")
	}
	return s.store.Unblock(ctx, addr.String())
}

// ListBlocked returns the active blocks.
func (s *Service) ListBlocked(ctx context.Context) ([]models.BlockedIP, error) {
	blocked, err := s.store.ListBlocked(ctx, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "reputation store unavailable")
	}
	return blocked, nil
}

func parseIP(ip string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}
