// Package log writes security events as structured audit log lines.
package log

import (
	"context"
	"log/slog"

	"shieldgate/internal/platform/privacy"
	audit "shieldgate/pkg/platform/audit"
)

// Store is an audit.Store that logs each event and never fails.
type Store struct {
	logger *slog.Logger
}

// New creates a log-backed store.
func New(logger *slog.Logger) *Store {
	return &Store{logger: logger}
}

func (s *Store) Append(ctx context.Context, event audit.SecurityEvent) error {
	level := slog.LevelInfo
	if event.Severity.Rank() >= audit.SeverityHigh.Rank() {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, string(event.Kind),
		"log_type", "audit",
		"event", string(event.Kind),
		"event_id", event.ID.String(),
		"severity", string(event.Severity),
		"client_ip", privacy.AnonymizeIP(event.ClientIP),
		"client_key", privacy.AnonymizeClientKey(event.ClientKey),
		"method", event.Method,
		"path", event.Path,
		"detail", event.Detail,
		"request_id", event.RequestID,
		"bot", event.Bot,
		"timestamp", event.Timestamp,
	)
	return nil
}
