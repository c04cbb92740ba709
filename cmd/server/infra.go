package main

import (
	"context"
	"fmt"
	"log/slog"

	admissionconfig "shieldgate/internal/admission/config"
	admissionmetrics "shieldgate/internal/admission/metrics"
	"shieldgate/internal/admission/ports"
	rlstore "shieldgate/internal/admission/store/ratelimit"
	repstore "shieldgate/internal/admission/store/reputation"
	"shieldgate/internal/platform/config"
	"shieldgate/internal/platform/database"
	"shieldgate/internal/platform/health"
	"shieldgate/internal/platform/kafka/producer"
	"shieldgate/internal/platform/redis"
	"shieldgate/pkg/platform/audit"
	"shieldgate/pkg/platform/audit/publishers"
	"shieldgate/pkg/platform/audit/publishers/security"
	kafkastore "shieldgate/pkg/platform/audit/store/kafka"
	logstore "shieldgate/pkg/platform/audit/store/log"
	memorystore "shieldgate/pkg/platform/audit/store/memory"
	pgstore "shieldgate/pkg/platform/audit/store/postgres"
	"shieldgate/pkg/platform/circuit"
)

// infra holds the stores and external connections chosen by configuration.
type infra struct {
	rateLimits        ports.RateLimitStore
	reputation        ports.ReputationStore
	rateLimitSweeper  ports.Sweeper
	reputationSweeper ports.Sweeper
	sink              *security.Publisher

	redis    *redis.Client
	db       *database.Pool
	producer *producer.Producer
}

func buildInfra(ctx context.Context, cfg config.Server, admissionCfg *admissionconfig.Config, m *admissionmetrics.Metrics, healthHandler *health.Handler, log *slog.Logger) (*infra, error) {
	in := &infra{}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		in.redis = rdb
		healthHandler.RegisterCheck("redis", rdb.Health)

		breaker := circuit.New("redis-ratelimit",
			circuit.WithFailureThreshold(admissionCfg.Fallback.FailureThreshold),
			circuit.WithSuccessThreshold(admissionCfg.Fallback.SuccessThreshold),
			circuit.WithCooldown(admissionCfg.Fallback.Cooldown),
		)
		fallback := rlstore.NewFallbackStore(rlstore.NewRedisStore(rdb.Client), breaker,
			rlstore.WithLogger(log),
			rlstore.WithMetrics(m),
		)
		in.rateLimits = fallback
		in.rateLimitSweeper = fallback
		in.reputation = repstore.NewRedisStore(rdb.Client)
		log.Info("admission state backed by redis")
	} else {
		rateLimits := rlstore.NewInMemoryStore()
		reputation := repstore.NewInMemoryStore()
		in.rateLimits, in.rateLimitSweeper = rateLimits, rateLimits
		in.reputation, in.reputationSweeper = reputation, reputation
		log.Info("admission state kept in memory")
	}

	store, err := in.buildAuditStore(ctx, cfg, healthHandler, log)
	if err != nil {
		in.Close(log)
		return nil, err
	}
	in.sink = publishers.NewSecurity(store, publishers.DefaultConfig(), log)
	return in, nil
}

func (in *infra) buildAuditStore(ctx context.Context, cfg config.Server, healthHandler *health.Handler, log *slog.Logger) (audit.Store, error) {
	switch cfg.AuditSink {
	case config.AuditSinkMemory:
		return memorystore.New(10000), nil
	case config.AuditSinkPostgres:
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		pool, err := database.New(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		in.db = pool
		healthHandler.RegisterCheck("postgres", pool.Health)
		return pgstore.New(pool.DB()), nil
	case config.AuditSinkKafka:
		producerCfg := producer.DefaultConfig()
		producerCfg.Brokers = cfg.Kafka.Brokers
		p, err := producer.New(producerCfg, log)
		if err != nil {
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		in.producer = p
		healthHandler.RegisterCheck("kafka", p.Health)
		return kafkastore.New(p, cfg.AuditTopic), nil
	default:
		return logstore.New(log), nil
	}
}

// Close drains the audit sink before closing the connections it writes to.
func (in *infra) Close(log *slog.Logger) {
	if in.sink != nil {
		_ = in.sink.Close()
	}
	if in.producer != nil {
		if err := in.producer.Close(); err != nil {
			log.Warn("failed to close kafka producer", "error", err)
		}
	}
	if err := in.db.Close(); err != nil {
		log.Warn("failed to close database", "error", err)
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			log.Warn("failed to close redis", "error", err)
		}
	}
}
