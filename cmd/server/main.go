package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	admissionadmin "shieldgate/internal/admission/admin"
	admissionconfig "shieldgate/internal/admission/config"
	admissionhandler "shieldgate/internal/admission/handler"
	admissionmetrics "shieldgate/internal/admission/metrics"
	admission "shieldgate/internal/admission/middleware"
	ratelimitsvc "shieldgate/internal/admission/service/ratelimit"
	reputationsvc "shieldgate/internal/admission/service/reputation"
	"shieldgate/internal/admission/service/validation"
	"shieldgate/internal/admission/workers/cleanup"
	"shieldgate/internal/platform/config"
	"shieldgate/internal/platform/health"
	"shieldgate/internal/platform/logger"
	"shieldgate/pkg/platform/httputil"
	adminmw "shieldgate/pkg/platform/middleware/admin"
	"shieldgate/pkg/platform/middleware/auth"
	"shieldgate/pkg/platform/middleware/metadata"
	request "shieldgate/pkg/platform/middleware/request"
	"shieldgate/pkg/platform/middleware/requesttime"
)

// main loads configuration, wires the admission stack in front of the
// protected routes and runs until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "shieldgate:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	admissionCfg := admissionconfig.DefaultConfig()
	if cfg.AdmissionConfigPath != "" {
		if admissionCfg, err = admissionconfig.Load(cfg.AdmissionConfigPath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing shieldgate",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"audit_sink", cfg.AuditSink,
		"redis", cfg.Redis.URL != "",
	)

	reg := prometheus.DefaultRegisterer
	admissionMetrics := admissionmetrics.New(reg)
	healthHandler := health.New(cfg.Environment)

	infra, err := buildInfra(ctx, cfg, admissionCfg, admissionMetrics, healthHandler, log)
	if err != nil {
		return err
	}
	defer infra.Close(log)

	limiter, err := ratelimitsvc.New(infra.rateLimits,
		ratelimitsvc.WithConfig(admissionCfg),
		ratelimitsvc.WithLogger(log),
		ratelimitsvc.WithMetrics(admissionMetrics),
	)
	if err != nil {
		return err
	}
	whitelist, err := metadata.ParsePrefixes(admissionCfg.Whitelist)
	if err != nil {
		return err
	}
	reputation, err := reputationsvc.New(infra.reputation,
		reputationsvc.WithWhitelist(whitelist),
		reputationsvc.WithPolicy(admissionCfg.BruteForce.Policy()),
		reputationsvc.WithLogger(log),
		reputationsvc.WithMetrics(admissionMetrics),
	)
	if err != nil {
		return err
	}
	validator, err := validation.New(admissionCfg.Validation)
	if err != nil {
		return err
	}
	controller, err := admission.New(limiter, reputation, validator,
		admission.WithConfig(admissionCfg),
		admission.WithSink(infra.sink),
		admission.WithLogger(log),
		admission.WithMetrics(admissionMetrics),
	)
	if err != nil {
		return err
	}
	adminService, err := admissionadmin.New(reputation, limiter, admissionadmin.WithLogger(log))
	if err != nil {
		return err
	}

	trusted, err := metadata.ParsePrefixes(admissionCfg.TrustedProxies)
	if err != nil {
		return err
	}
	resolver := metadata.NewResolver(trusted)

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(request.Latency(request.NewMetrics(reg), routePattern))
	r.Use(resolver.Middleware)
	r.Use(requesttime.Middleware(time.Now))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.APIKey(auth.NewStaticKeys(cfg.APIKeys), log))
		if cfg.ForwardedUserHeader != "" {
			r.Use(auth.ForwardedUser(cfg.ForwardedUserHeader, resolver.IsTrustedPeer))
		}
		r.Use(controller.Handler)

		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(cfg.AdminToken, log))
			admissionhandler.New(adminService, log).RegisterAdmin(r)
		})
		r.NotFound(upstreamNotConfigured)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sweeper := cleanup.New(infra.rateLimitSweeper, infra.reputationSweeper,
		cleanup.WithInterval(admissionCfg.CleanupInterval),
		cleanup.WithLogger(log),
		cleanup.WithMetrics(admissionMetrics),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(sweeper.Start(gctx))
	})
	if infra.redis != nil {
		g.Go(func() error {
			return ignoreCanceled(infra.redis.PoolStatsLoop(gctx, 15*time.Second))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// upstreamNotConfigured answers admitted requests for which no route exists.
// Deployments embedding shieldgate mount their handlers in the same group.
func upstreamNotConfigured(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteDetail(w, http.StatusNotFound, "Not found")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
