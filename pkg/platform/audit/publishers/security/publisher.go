// Package security provides the asynchronous audit sink used on the request
// path.
//
// Emit enqueues into a bounded ring buffer and returns immediately; a
// background loop flushes batches to an audit.Store with exponential-backoff
// retry. A full buffer drops the oldest event.
package security

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	audit "shieldgate/pkg/platform/audit"
)

// Publisher emits security events asynchronously with buffering and retry.
type Publisher struct {
	store   audit.Store
	buffer  *RingBuffer
	logger  *slog.Logger
	metrics *Metrics

	maxRetries    int
	retryBackoff  time.Duration
	flushInterval time.Duration
	batchSize     int

	flushMu   sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	flushed           atomic.Int64
	retries           atomic.Int64
	droppedAfterRetry atomic.Int64
}

var _ audit.Sink = (*Publisher)(nil)

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBufferSize sets the buffer capacity.
func WithBufferSize(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = NewRingBuffer(size)
		}
	}
}

// WithMaxRetries sets the maximum retry attempts per event.
func WithMaxRetries(n int) Option {
	return func(p *Publisher) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base retry backoff.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *Publisher) {
		p.retryBackoff = d
	}
}

// WithFlushInterval sets how often the background loop flushes.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// WithBatchSize sets the batch size for flushing.
func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// New creates a publisher and starts its flush loop. Call Close to drain.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		buffer:        NewRingBuffer(10000),
		maxRetries:    3,
		retryBackoff:  100 * time.Millisecond,
		flushInterval: 50 * time.Millisecond,
		batchSize:     100,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	var ctx context.Context
	ctx, p.cancel = context.WithCancel(context.Background())
	go p.flushLoop(ctx)
	return p
}

// Emit queues event for persistence. It never blocks and never fails.
func (p *Publisher) Emit(_ context.Context, event audit.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.buffer.Enqueue(event) && p.metrics != nil {
		p.metrics.Dropped.Inc()
	}
	if p.metrics != nil {
		p.metrics.QueueDepth.Set(float64(p.buffer.Len()))
	}
}

// Flush persists everything currently buffered.
func (p *Publisher) Flush(ctx context.Context) {
	for p.buffer.Len() > 0 && ctx.Err() == nil {
		p.flushBatch(ctx)
	}
}

// Close stops the flush loop and drains the buffer with a bounded timeout.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.done

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p.Flush(ctx)
		if n := p.buffer.Len(); n > 0 && p.logger != nil {
			p.logger.Warn("security audit buffer not fully drained on shutdown", "remaining", n)
		}
	})
	return nil
}

// Stats returns buffer statistics for monitoring.
func (p *Publisher) Stats() BufferStats {
	return BufferStats{
		Queued:            int64(p.buffer.Len()),
		Flushed:           p.flushed.Load(),
		Dropped:           p.buffer.Dropped(),
		DroppedAfterRetry: p.droppedAfterRetry.Load(),
		Retries:           p.retries.Load(),
	}
}

// BufferStats holds buffer statistics.
type BufferStats struct {
	Queued            int64 // in buffer now
	Flushed           int64 // persisted
	Dropped           int64 // overwritten on overflow
	DroppedAfterRetry int64 // given up on after retries
	Retries           int64
}

func (p *Publisher) flushLoop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	// A batch already dequeued is finished even if Close cancels the loop.
	persistCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flushBatch(persistCtx)
		}
	}
}

func (p *Publisher) flushBatch(ctx context.Context) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	events := p.buffer.DequeueBatch(p.batchSize)
	if len(events) == 0 {
		return
	}

	start := time.Now()
	for _, event := range events {
		p.persistWithRetry(ctx, event)
	}
	if p.metrics != nil {
		p.metrics.FlushDuration.Observe(time.Since(start).Seconds())
		p.metrics.QueueDepth.Set(float64(p.buffer.Len()))
	}
}

func (p *Publisher) persistWithRetry(ctx context.Context, event audit.SecurityEvent) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			p.retries.Add(1)
			if p.metrics != nil {
				p.metrics.Retries.Inc()
			}
			backoff := p.retryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				p.drop(ctx, event, ctx.Err())
				return
			case <-time.After(backoff):
			}
		}

		lastErr = p.store.Append(ctx, event)
		if lastErr == nil {
			p.flushed.Add(1)
			if p.metrics != nil {
				p.metrics.Flushed.Inc()
			}
			return
		}
	}
	p.drop(ctx, event, lastErr)
}

func (p *Publisher) drop(ctx context.Context, event audit.SecurityEvent, err error) {
	p.droppedAfterRetry.Add(1)
	if p.metrics != nil {
		p.metrics.DroppedAfterRetry.Inc()
	}
	if p.logger != nil {
		p.logger.WarnContext(ctx, "security audit event dropped",
			"kind", event.Kind,
			"event_id", event.ID.String(),
			"error", err,
		)
	}
}
