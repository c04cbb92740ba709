// Package config holds the admission policy: per-class limits, validator
// bounds, brute-force settings and the address lists. It is loaded from YAML
// over DefaultConfig and validated before use.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"shieldgate/internal/admission/models"
)

// Config is the full admission policy.
type Config struct {
	Classes map[models.EndpointClass]ClassPolicy `yaml:"classes" validate:"required,min=1,dive,keys,required,endkeys"`
	// ClassRules are matched in order; the first match wins.
	ClassRules   []ClassRule          `yaml:"class_rules" validate:"dive"`
	DefaultClass models.EndpointClass `yaml:"default_class" validate:"required"`

	Validation ValidationConfig `yaml:"validation"`
	BruteForce BruteForceConfig `yaml:"brute_force"`
	Fallback   FallbackConfig   `yaml:"fallback"`

	SlowRequestThreshold time.Duration `yaml:"slow_request_threshold" validate:"gt=0"`
	CleanupInterval      time.Duration `yaml:"cleanup_interval" validate:"gt=0"`

	Whitelist            []string `yaml:"whitelist" validate:"dive,cidr|ip"`
	TrustedProxies       []string `yaml:"trusted_proxies" validate:"dive,cidr|ip"`
	ExcludedPathPrefixes []string `yaml:"excluded_path_prefixes" validate:"dive,startswith=/"`
	FailureStatuses      []int    `yaml:"failure_statuses" validate:"dive,gte=400,lte=599"`
	FailurePathPrefixes  []string `yaml:"failure_path_prefixes" validate:"dive,startswith=/"`
}

// ClassPolicy is the burst bucket and window ceilings of one endpoint class.
type ClassPolicy struct {
	BurstCapacity   int     `yaml:"burst_capacity" validate:"gte=1"`
	RefillPerSecond float64 `yaml:"refill_per_second" validate:"gt=0"`
	PerMinute       int     `yaml:"per_minute" validate:"gte=1"`
	PerHour         int     `yaml:"per_hour" validate:"gte=1,gtefield=PerMinute"`
	PerDay          int     `yaml:"per_day" validate:"gte=1,gtefield=PerHour"`
}

// Policy converts to the store-facing model.
func (p ClassPolicy) Policy() models.Policy {
	return models.Policy{
		BurstCapacity:   p.BurstCapacity,
		RefillPerSecond: p.RefillPerSecond,
		PerMinute:       p.PerMinute,
		PerHour:         p.PerHour,
		PerDay:          p.PerDay,
	}
}

// ClassRule maps a path prefix, optionally restricted to methods, to a class.
type ClassRule struct {
	PathPrefix string               `yaml:"path_prefix" validate:"required,startswith=/"`
	Methods    []string             `yaml:"methods" validate:"dive,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	Class      models.EndpointClass `yaml:"class" validate:"required"`
}

func (r ClassRule) matches(method, path string) bool {
	if !underPrefix(path, r.PathPrefix) {
		return false
	}
	return len(r.Methods) == 0 || slices.Contains(r.Methods, method)
}

// ValidationConfig bounds request structure.
type ValidationConfig struct {
	MaxBodyBytes   int64    `yaml:"max_body_bytes" validate:"gte=1"`
	MaxHeaderBytes int      `yaml:"max_header_bytes" validate:"gte=1"`
	MaxURLLength   int      `yaml:"max_url_length" validate:"gte=1"`
	ExtraPatterns  []string `yaml:"extra_patterns"`
}

// BruteForceConfig controls failure tracking.
type BruteForceConfig struct {
	Threshold     int           `yaml:"threshold" validate:"gte=1"`
	Lookback      time.Duration `yaml:"lookback" validate:"gt=0"`
	BlockDuration time.Duration `yaml:"block_duration" validate:"gt=0"`
}

// Policy converts to the store-facing model.
func (b BruteForceConfig) Policy() models.BruteForcePolicy {
	return models.BruteForcePolicy{
		Threshold:     b.Threshold,
		Lookback:      b.Lookback,
		BlockDuration: b.BlockDuration,
	}
}

// FallbackConfig tunes the breaker in front of a remote rate-limit store.
type FallbackConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" validate:"gte=1"`
	SuccessThreshold int           `yaml:"success_threshold" validate:"gte=1"`
	Cooldown         time.Duration `yaml:"cooldown" validate:"gt=0"`
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() *Config {
	return &Config{
		Classes: map[models.EndpointClass]ClassPolicy{
			models.ClassAuth:      {BurstCapacity: 5, RefillPerSecond: 1, PerMinute: 10, PerHour: 100, PerDay: 1000},
			models.ClassSensitive: {BurstCapacity: 10, RefillPerSecond: 5, PerMinute: 30, PerHour: 500, PerDay: 5000},
			models.ClassRead:      {BurstCapacity: 10, RefillPerSecond: 10, PerMinute: 60, PerHour: 1000, PerDay: 10000},
			models.ClassWrite:     {BurstCapacity: 10, RefillPerSecond: 10, PerMinute: 30, PerHour: 500, PerDay: 5000},
		},
		ClassRules: []ClassRule{
			{PathPrefix: "/auth", Class: models.ClassAuth},
			{PathPrefix: "/admin", Class: models.ClassSensitive},
			{PathPrefix: "/", Methods: []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}, Class: models.ClassWrite},
		},
		DefaultClass: models.ClassRead,
		Validation: ValidationConfig{
			MaxBodyBytes:   10 << 20,
			MaxHeaderBytes: 8 << 10,
			MaxURLLength:   2048,
		},
		BruteForce: BruteForceConfig{
			Threshold:     5,
			Lookback:      time.Hour,
			BlockDuration: 30 * time.Minute,
		},
		Fallback: FallbackConfig{
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Cooldown:         5 * time.Second,
		},
		SlowRequestThreshold: 5 * time.Second,
		CleanupInterval:      5 * time.Minute,
		Whitelist: []string{
			"127.0.0.0/8",
			"10.0.0.0/8",
			"172.16.0.0/12",
			"192.168.0.0/16",
			"::1/128",
			"fc00::/7",
		},
		ExcludedPathPrefixes: []string{"/health", "/metrics", "/docs"},
		FailureStatuses:      []int{http.StatusUnauthorized},
		FailurePathPrefixes:  []string{"/auth"},
	}
}

// Load reads YAML from path over the defaults. An empty path returns the
// defaults. A class listed in the file replaces that class's default policy.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read admission config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse admission config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid admission config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross references between classes.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, ok := c.Classes[c.DefaultClass]; !ok {
		return fmt.Errorf("default_class %q has no policy", c.DefaultClass)
	}
	var errs []error
	for i, rule := range c.ClassRules {
		if _, ok := c.Classes[rule.Class]; !ok {
			errs = append(errs, fmt.Errorf("class_rules[%d]: class %q has no policy", i, rule.Class))
		}
	}
	return errors.Join(errs...)
}

// ClassFor resolves the endpoint class of a request.
func (c *Config) ClassFor(method, path string) models.EndpointClass {
	for _, rule := range c.ClassRules {
		if rule.matches(method, path) {
			return rule.Class
		}
	}
	return c.DefaultClass
}

// PolicyFor returns the policy of class, falling back to the default class.
func (c *Config) PolicyFor(class models.EndpointClass) models.Policy {
	if p, ok := c.Classes[class]; ok {
		return p.Policy()
	}
	return c.Classes[c.DefaultClass].Policy()
}

// ClassNames returns the configured classes in a stable order.
func (c *Config) ClassNames() []models.EndpointClass {
	names := make([]models.EndpointClass, 0, len(c.Classes))
	for name := range c.Classes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsExcluded reports whether path bypasses admission entirely.
func (c *Config) IsExcluded(path string) bool {
	return hasAnyPrefix(path, c.ExcludedPathPrefixes)
}

// IsFailureResponse reports whether a downstream status on path counts as a
// failed authentication attempt.
func (c *Config) IsFailureResponse(path string, status int) bool {
	return slices.Contains(c.FailureStatuses, status) && hasAnyPrefix(path, c.FailurePathPrefixes)
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if underPrefix(path, p) {
			return true
		}
	}
	return false
}

// underPrefix matches whole path segments: "/health" covers "/health" and
// "/health/ready" but not "/healthcare". A prefix ending in "/" matches
// anything below it.
func underPrefix(path, prefix string) bool {
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(path, prefix)
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
