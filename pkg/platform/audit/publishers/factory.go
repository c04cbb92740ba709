// Package publishers wires the audit sink used by the admission layer.
package publishers

import (
	"log/slog"
	"time"

	audit "shieldgate/pkg/platform/audit"
	"shieldgate/pkg/platform/audit/publishers/security"
)

// Config configures the async security publisher.
type Config struct {
	BufferSize    int
	FlushInterval time.Duration
	BatchSize     int
	MaxRetries    int
	RetryBackoff  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:    10000,
		FlushInterval: 50 * time.Millisecond,
		BatchSize:     100,
		MaxRetries:    3,
		RetryBackoff:  100 * time.Millisecond,
	}
}

// NewSecurity creates the async sink over store with process-wide metrics.
func NewSecurity(store audit.Store, cfg Config, logger *slog.Logger) *security.Publisher {
	return security.New(store,
		security.WithLogger(logger),
		security.WithMetrics(security.NewMetrics()),
		security.WithBufferSize(cfg.BufferSize),
		security.WithFlushInterval(cfg.FlushInterval),
		security.WithBatchSize(cfg.BatchSize),
		security.WithMaxRetries(cfg.MaxRetries),
		security.WithRetryBackoff(cfg.RetryBackoff),
	)
}
