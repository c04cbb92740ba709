package middleware

import (
	"context"
	"time"

	"shieldgate/internal/admission/models"
	"shieldgate/internal/admission/service/validation"
)

// RateLimiter decides whether a client may proceed in an endpoint class.
type RateLimiter interface {
	Check(ctx context.Context, clientKey string, class models.EndpointClass) (*models.RateLimitResult, error)
}

// Reputation answers block status and takes failure feedback. Whitelisted
// addresses bypass rate limiting as well as blocking.
type Reputation interface {
	IsWhitelisted(ip string) bool
	IsBlocked(ctx context.Context, ip string) (bool, time.Time, error)
	RecordFailure(ctx context.Context, ip string) (*models.FailureResult, error)
}

// Validator screens request structure and content.
type Validator interface {
	CheckDeclaredSize(meta validation.RequestMeta) models.ValidationResult
	Validate(ctx context.Context, meta validation.RequestMeta, body []byte) models.ValidationResult
	MaxBodyBytes() int64
}
