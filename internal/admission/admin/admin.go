// Package admin implements operator actions on admission state: listing and
// lifting IP blocks and resetting a client's rate-limit counters.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"

	"shieldgate/internal/admission/models"
	"shieldgate/internal/admission/observability"
	"shieldgate/internal/platform/privacy"
	dErrors "shieldgate/pkg/domain-errors"
	adminmw "shieldgate/pkg/platform/middleware/admin"
)

type BlockManager interface {
	ListBlocked(ctx context.Context) ([]models.BlockedIP, error)
	Unblock(ctx context.Context, ip string) error
}

type RateLimitResetter interface {
	Reset(ctx context.Context, clientKey string) error
}

type Service struct {
	blocks     BlockManager
	rateLimits RateLimitResetter
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(blocks BlockManager, rateLimits RateLimitResetter, opts ...Option) (*Service, error) {
	if blocks == nil {
		return nil, errors.New("block manager is required")
	}
	if rateLimits == nil {
		return nil, errors.New("rate limit resetter is required")
	}
	svc := &Service{
		blocks:     blocks,
		rateLimits: rateLimits,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) ListBlocked(ctx context.Context) ([]models.BlockedIP, error) {
	return s.blocks.ListBlocked(ctx)
}

// Unblock lifts the block on ip. Unknown addresses yield CodeNotFound.
func (s *Service) Unblock(ctx context.Context, ip string) error {
	if err := s.blocks.Unblock(ctx, ip); err != nil {
		return err
	}
	observability.LogAudit(ctx, s.logger, "admission_ip_unblocked",
		"ip_prefix", privacy.AnonymizeIP(ip),
		"actor", adminmw.ActorID(ctx),
	)
	return nil
}

// ResetClient clears every endpoint class of one client identity and returns
// the client key that was reset.
func (s *Service) ResetClient(ctx context.Context, req *models.ResetClientRequest) (string, error) {
	identifier := req.Identifier
	if req.Kind == models.KeyPrefixIP {
		addr, err := netip.ParseAddr(identifier)
		if err != nil {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid ip address")
		}
		identifier = addr.Unmap().WithZone("").String()
	}
	if !req.Kind.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown client kind")
	}

	clientKey := models.NewClientKey(req.Kind, identifier)
	if err := s.rateLimits.Reset(ctx, clientKey); err != nil {
		return "", err
	}
	observability.LogAudit(ctx, s.logger, "admission_client_reset",
		"client_key", privacy.AnonymizeClientKey(clientKey),
		"actor", adminmw.ActorID(ctx),
	)
	return clientKey, nil
}
