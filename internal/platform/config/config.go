package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"shieldgate/internal/platform/kafka"
)

// Audit sink names accepted in AUDIT_SINK.
const (
	AuditSinkLog      = "log"
	AuditSinkMemory   = "memory"
	AuditSinkPostgres = "postgres"
	AuditSinkKafka    = "kafka"
)

// Server captures process-level configuration read from the environment.
// Admission policy lives in a separate YAML file (AdmissionConfigPath).
type Server struct {
	Addr                string        `validate:"required"`
	Environment         string        `validate:"required"`
	LogLevel            string        `validate:"oneof=debug info warn error"`
	AdmissionConfigPath string
	AdminToken          string
	ShutdownTimeout     time.Duration `validate:"gt=0"`
	AuditSink           string        `validate:"oneof=log memory postgres kafka"`
	AuditTopic          string
	APIKeys             map[string]string
	ForwardedUserHeader string

	Redis    RedisConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
}

// RedisConfig configures the shared rate-limit and reputation backend.
// An empty URL selects the in-memory stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the Postgres audit sink.
type DatabaseConfig struct {
	URL string
}

// KafkaConfig configures the Kafka audit sink.
type KafkaConfig struct {
	Brokers string
}

var validate = validator.New()

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:                envOr("SHIELDGATE_ADDR", ":8080"),
		Environment:         envOr("ENVIRONMENT", "development"),
		LogLevel:            strings.ToLower(envOr("LOG_LEVEL", "info")),
		AdmissionConfigPath: os.Getenv("ADMISSION_CONFIG"),
		AdminToken:          os.Getenv("ADMIN_TOKEN"),
		AuditSink:           strings.ToLower(envOr("AUDIT_SINK", AuditSinkLog)),
		AuditTopic:          envOr("AUDIT_TOPIC", kafka.DefaultSecurityEventsTopic),
		ForwardedUserHeader: os.Getenv("FORWARDED_USER_HEADER"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     20,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  200 * time.Millisecond,
			WriteTimeout: 200 * time.Millisecond,
		},
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Kafka:    KafkaConfig{Brokers: os.Getenv("KAFKA_BROKERS")},
	}

	var err error
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.PoolSize, err = intEnv("REDIS_POOL_SIZE", cfg.Redis.PoolSize); err != nil {
		return Server{}, err
	}
	if cfg.APIKeys, err = parseAPIKeys(os.Getenv("API_KEYS")); err != nil {
		return Server{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and the dependencies of the chosen sink.
func (s Server) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	switch s.AuditSink {
	case AuditSinkPostgres:
		if s.Database.URL == "" {
			return fmt.Errorf("invalid server config: AUDIT_SINK=postgres requires DATABASE_URL")
		}
	case AuditSinkKafka:
		if s.Kafka.Brokers == "" {
			return fmt.Errorf("invalid server config: AUDIT_SINK=kafka requires KAFKA_BROKERS")
		}
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

// parseAPIKeys reads "id=key,id=key".
func parseAPIKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, key, ok := strings.Cut(pair, "=")
		id, key = strings.TrimSpace(id), strings.TrimSpace(key)
		if !ok || id == "" || key == "" {
			return nil, fmt.Errorf("parse API_KEYS: entry %q must be id=key", id)
		}
		keys[id] = key
	}
	return keys, nil
}
