package audit

//go:generate mockgen -source=models.go -destination=mocks/mocks.go -package=mocks Sink,Store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what the admission layer observed.
type Kind string

const (
	KindRateLimitExceeded  Kind = "RATE_LIMIT_EXCEEDED"
	KindIPBlocked          Kind = "IP_BLOCKED"
	KindBruteForceDetected Kind = "BRUTE_FORCE_DETECTED"
	KindValidationFailed   Kind = "VALIDATION_FAILED"
	KindSlowRequest        Kind = "SLOW_REQUEST"
	KindControllerFault    Kind = "CONTROLLER_FAULT"
)

// IsValid reports whether k is a known event kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindRateLimitExceeded, KindIPBlocked, KindBruteForceDetected,
		KindValidationFailed, KindSlowRequest, KindControllerFault:
		return true
	}
	return false
}

// Severity orders events for alerting.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns a comparable ordinal, 0 for unknown severities.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// SecurityEvent is the record emitted for every admission short-circuit,
// slow request and recovered controller fault.
type SecurityEvent struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Severity  Severity  `json:"severity"`
	ClientIP  string    `json:"clientIp"`
	ClientKey string    `json:"clientKey,omitempty"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Bot       bool      `json:"bot"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives security events. Emit must not block the caller.
type Sink interface {
	Emit(ctx context.Context, event SecurityEvent)
}

// Store persists security events. Implementations may block; callers on the
// request path go through an async Sink instead.
type Store interface {
	Append(ctx context.Context, event SecurityEvent) error
}
