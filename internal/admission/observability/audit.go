// Package observability logs and publishes admission security events.
package observability

import (
	"context"
	"log/slog"

	"shieldgate/internal/platform/privacy"
	"shieldgate/pkg/platform/audit"
	"shieldgate/pkg/requestcontext"
)

// Emit enriches event from ctx, logs it with the client address masked and
// hands it to sink. sink may be nil.
func Emit(ctx context.Context, logger *slog.Logger, sink audit.Sink, event audit.SecurityEvent) audit.SecurityEvent {
	event = audit.Enrich(ctx, event)

	if logger != nil {
		logger.Log(ctx, levelFor(event.Severity), "security event",
			"event", string(event.Kind),
			"severity", string(event.Severity),
			"ip_prefix", privacy.AnonymizeIP(event.ClientIP),
			"client_key", privacy.AnonymizeClientKey(event.ClientKey),
			"method", event.Method,
			"path", event.Path,
			"detail", event.Detail,
			"request_id", event.RequestID,
			"bot", event.Bot,
			"log_type", "security",
		)
	}
	if sink != nil {
		sink.Emit(ctx, event)
	}
	return event
}

// LogAudit records an operator action on the admission state.
func LogAudit(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	attrs = append(attrs, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, attrs...)
}

func levelFor(severity audit.Severity) slog.Level {
	switch severity {
	case audit.SeverityCritical, audit.SeverityHigh:
		return slog.LevelWarn
	case audit.SeverityMedium:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
