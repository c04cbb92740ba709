// Package requestcontext carries request-scoped values (request id, client
// metadata, resolved identity and request time) through context.Context.
//
// All operations within a single HTTP request use the same "now" timestamp so
// that admission decisions, audit events and log lines agree on time.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
	userIDKey    struct{}
	apiKeyKey    struct{}
	nowKey       struct{}
)

// WithRequestID stores the correlation id for the request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the correlation id, or "" when none was set.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClientMetadata stores the resolved client IP and User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// ClientIP returns the resolved client IP, or "" when metadata was not extracted.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}
	return ""
}

// UserAgent returns the client User-Agent header captured for the request.
func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// WithUserID records the authenticated user id. Only authentication
// middleware that has verified the caller should set it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user id, or "".
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithAPIKey records a verified API key identifier. Unverified header values
// must never be stored here: they would let a client mint fresh rate-limit
// identities at will.
func WithAPIKey(ctx context.Context, keyID string) context.Context {
	return context.WithValue(ctx, apiKeyKey{}, keyID)
}

// APIKey returns the verified API key identifier, or "".
func APIKey(ctx context.Context) string {
	if v, ok := ctx.Value(apiKeyKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime injects a specific time into a context.
// Used by the request-time middleware, workers and tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, t)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
