// Package middleware hosts the admission controller: the HTTP middleware that
// runs IP reputation, rate limiting and request validation, in that order,
// before a request reaches its handler.
//
// Usage:
//
//	ctrl, err := middleware.New(limiter, reputation, validator,
//	    middleware.WithConfig(cfg),
//	    middleware.WithSink(publisher),
//	)
//	r.Use(ctrl.Handler)
//
// A denial ends the request with a fixed client message and exactly one
// security event. An internal error or panic in any stage is recorded as a
// CONTROLLER_FAULT and the request continues as if that stage had passed.
package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shieldgate/internal/admission/config"
	"shieldgate/internal/admission/metrics"
	"shieldgate/internal/admission/models"
	"shieldgate/internal/admission/observability"
	"shieldgate/internal/admission/service/validation"
	"shieldgate/pkg/platform/audit"
	"shieldgate/pkg/platform/httputil"
	"shieldgate/pkg/requestcontext"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks RateLimiter,Reputation,Validator

// Controller is safe for concurrent use.
type Controller struct {
	limiter    RateLimiter
	reputation Reputation
	validator  Validator

	cfg     *config.Config
	sink    audit.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

func WithConfig(cfg *config.Config) Option {
	return func(c *Controller) {
		if cfg != nil {
			c.cfg = cfg
		}
	}
}

func WithSink(sink audit.Sink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// WithClock sets the clock used to measure handler duration. The request
// start comes from requestcontext.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// New creates the controller. All three collaborators are required.
func New(limiter RateLimiter, reputation Reputation, validator Validator, opts ...Option) (*Controller, error) {
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if reputation == nil {
		return nil, errors.New("reputation service is required")
	}
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	c := &Controller{
		limiter:    limiter,
		reputation: reputation,
		validator:  validator,
		cfg:        config.DefaultConfig(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("shieldgate/admission"),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var outcomes = map[models.Stage]string{
	models.StageBlocked:   "blocked",
	models.StageThrottled: "throttled",
	models.StageRejected:  "rejected",
}

// rejection is a terminal outcome of a stage.
type rejection struct {
	stage   models.Stage
	status  int
	message string
	rate    *models.RateLimitResult
	event   audit.SecurityEvent
}

// Handler wraps next with the admission pipeline.
func (c *Controller) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.cfg.IsExcluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := c.tracer.Start(r.Context(), "admission",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()
		r = r.WithContext(ctx)

		start := requestcontext.Now(ctx)
		ip := requestcontext.ClientIP(ctx)
		clientKey := ClientKey(ctx)
		class := c.cfg.ClassFor(r.Method, r.URL.Path)
		span.SetAttributes(attribute.String("admission.class", class.String()))

		rej := c.safely(r, models.StageIPChecked, func() (*rejection, error) {
			return c.checkIP(ctx, ip)
		})

		var rate *models.RateLimitResult
		if rej == nil {
			rej = c.safely(r, models.StageRateChecked, func() (*rejection, error) {
				if c.reputation.IsWhitelisted(ip) {
					return nil, nil
				}
				result, err := c.limiter.Check(ctx, clientKey, class)
				if err != nil {
					return nil, err
				}
				rate = result
				return throttled(result, class), nil
			})
		}

		if rej == nil {
			rej = c.safely(r, models.StageValidated, func() (*rejection, error) {
				return c.validate(ctx, r), nil
			})
		}

		if rej != nil {
			c.reject(ctx, w, r, clientKey, class, rej)
			span.SetAttributes(attribute.String("admission.stage", string(rej.stage)))
			return
		}

		c.metrics.IncrementDecision("allowed", class.String())
		addRateLimitHeaders(w.Header(), rate)
		span.SetAttributes(attribute.String("admission.stage", string(models.StageForwarded)))

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		c.afterResponse(r, clientKey, rec.status, start)
		span.SetAttributes(
			attribute.String("admission.stage", string(models.StageResponded)),
			attribute.Int("http.response.status_code", rec.status),
		)
	})
}

// RecordFailure feeds an authentication failure for the client address of r
// into the reputation service and emits BRUTE_FORCE_DETECTED when it starts
// a block.
func (c *Controller) RecordFailure(r *http.Request) (*models.FailureResult, error) {
	ctx := r.Context()
	ip := requestcontext.ClientIP(ctx)
	result, err := c.reputation.RecordFailure(ctx, ip)
	if err != nil {
		return nil, err
	}
	if result.BruteForceDetected {
		c.emit(ctx, r, ClientKey(ctx), audit.SecurityEvent{
			Kind:     audit.KindBruteForceDetected,
			Severity: audit.SeverityCritical,
			Detail: fmt.Sprintf("%d failures, blocked until %s",
				result.FailedAttempts, result.BlockedUntil.UTC().Format(time.RFC3339)),
		})
	}
	return result, nil
}

func (c *Controller) checkIP(ctx context.Context, ip string) (*rejection, error) {
	blocked, until, err := c.reputation.IsBlocked(ctx, ip)
	if err != nil || !blocked {
		return nil, err
	}
	return &rejection{
		stage:   models.StageBlocked,
		status:  http.StatusForbidden,
		message: msgAccessDenied,
		event: audit.SecurityEvent{
			Kind:     audit.KindIPBlocked,
			Severity: audit.SeverityHigh,
			Detail:   "blocked until " + until.UTC().Format(time.RFC3339),
		},
	}, nil
}

func throttled(result *models.RateLimitResult, class models.EndpointClass) *rejection {
	if result.Allowed {
		return nil
	}
	return &rejection{
		stage:  models.StageThrottled,
		status: http.StatusTooManyRequests,
		rate:   result,
		event: audit.SecurityEvent{
			Kind:     audit.KindRateLimitExceeded,
			Severity: audit.SeverityMedium,
			Detail:   fmt.Sprintf("%s gate exceeded for class %s", result.Gate, class),
		},
	}
}

// validate reads at most MaxBodyBytes+1 bytes of the body and restores it
// for the downstream handler.
func (c *Controller) validate(ctx context.Context, r *http.Request) *rejection {
	meta := validation.MetaFromRequest(r)
	if res := c.validator.CheckDeclaredSize(meta); !res.OK {
		return c.invalid(res)
	}

	var body []byte
	if validation.HasBody(r.Method) && r.Body != nil && r.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, c.validator.MaxBodyBytes()+1))
		if err != nil {
			return c.invalid(models.Invalid(models.ReasonBody, "unreadable body"))
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	if res := c.validator.Validate(ctx, meta, body); !res.OK {
		return c.invalid(res)
	}
	return nil
}

func (c *Controller) invalid(res models.ValidationResult) *rejection {
	c.metrics.IncrementValidationFailure(string(res.Reason), res.PatternMatch)
	status, message := validationStatus(res.Reason)
	severity := audit.SeverityMedium
	if res.PatternMatch {
		severity = audit.SeverityHigh
	}
	return &rejection{
		stage:   models.StageRejected,
		status:  status,
		message: message,
		event: audit.SecurityEvent{
			Kind:     audit.KindValidationFailed,
			Severity: severity,
			Detail:   fmt.Sprintf("%s: %s", res.Reason, res.Detail),
		},
	}
}

func (c *Controller) reject(ctx context.Context, w http.ResponseWriter, r *http.Request, clientKey string, class models.EndpointClass, rej *rejection) {
	c.metrics.IncrementDecision(outcomes[rej.stage], class.String())
	c.emit(ctx, r, clientKey, rej.event)

	if rej.rate != nil {
		writeRateLimitExceeded(w, rej.rate)
		return
	}
	httputil.WriteDetail(w, rej.status, rej.message)
}

func (c *Controller) afterResponse(r *http.Request, clientKey string, status int, start time.Time) {
	ctx := r.Context()
	if c.cfg.IsFailureResponse(r.URL.Path, status) {
		c.safely(r, models.StageResponded, func() (*rejection, error) {
			_, err := c.RecordFailure(r)
			return nil, err
		})
	}

	elapsed := c.clock().Sub(start)
	if elapsed > c.cfg.SlowRequestThreshold {
		c.emit(ctx, r, clientKey, audit.SecurityEvent{
			Kind:     audit.KindSlowRequest,
			Severity: audit.SeverityLow,
			Detail:   fmt.Sprintf("handled in %s", elapsed.Round(time.Millisecond)),
		})
	}
}

// safely runs one stage. Errors and panics are reported as a controller
// fault and the stage counts as passed.
func (c *Controller) safely(r *http.Request, stage models.Stage, fn func() (*rejection, error)) (rej *rejection) {
	began := time.Now()
	defer func() {
		if p := recover(); p != nil {
			c.fault(r, stage, fmt.Errorf("panic: %v", p))
			rej = nil
		}
		c.metrics.ObserveStage(string(stage), time.Since(began))
	}()

	var err error
	rej, err = fn()
	if err != nil {
		c.fault(r, stage, err)
		return nil
	}
	return rej
}

func (c *Controller) fault(r *http.Request, stage models.Stage, err error) {
	ctx := r.Context()
	c.metrics.IncrementFailOpen(string(stage))
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "admission stage failed open")

	c.logger.ErrorContext(ctx, "admission stage failed, allowing request",
		"stage", string(stage),
		"error", err,
	)
	c.emit(ctx, r, ClientKey(ctx), audit.SecurityEvent{
		Kind:     audit.KindControllerFault,
		Severity: audit.SeverityHigh,
		Detail:   fmt.Sprintf("%s: %v", stage, err),
	})
}

func (c *Controller) emit(ctx context.Context, r *http.Request, clientKey string, event audit.SecurityEvent) {
	event.ClientKey = clientKey
	event.Path = r.URL.Path
	event.Method = r.Method
	observability.Emit(ctx, c.logger, c.sink, event)
}
