package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"shieldgate/internal/admission/models"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) writeFile(content string) string {
	path := filepath.Join(s.T().TempDir(), "admission.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *ConfigSuite) TestDefaultConfigIsValid() {
	cfg := DefaultConfig()
	s.Require().NoError(cfg.Validate())
	s.Equal(int64(10<<20), cfg.Validation.MaxBodyBytes)
	s.Equal(5, cfg.BruteForce.Threshold)
	s.Equal(30*time.Minute, cfg.BruteForce.BlockDuration)
	s.Equal(5*time.Second, cfg.SlowRequestThreshold)
	s.Equal(60, cfg.PolicyFor(models.ClassRead).PerMinute)
}

func (s *ConfigSuite) TestLoadEmptyPathReturnsDefaults() {
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(DefaultConfig(), cfg)
}

func (s *ConfigSuite) TestLoadOverridesDefaults() {
	path := s.writeFile(`
classes:
  read:
    burst_capacity: 20
    refill_per_second: 20
    per_minute: 120
    per_hour: 2000
    per_day: 20000
brute_force:
  threshold: 3
  lookback: 10m
  block_duration: 1h
trusted_proxies:
  - 10.0.0.0/8
  - 192.0.2.1
slow_request_threshold: 2s
`)
	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal(120, cfg.PolicyFor(models.ClassRead).PerMinute)
	s.Equal(10, cfg.PolicyFor(models.ClassAuth).PerMinute, "unlisted classes keep their defaults")
	s.Equal(3, cfg.BruteForce.Threshold)
	s.Equal(10*time.Minute, cfg.BruteForce.Lookback)
	s.Equal(time.Hour, cfg.BruteForce.BlockDuration)
	s.Equal([]string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
	s.Equal(2*time.Second, cfg.SlowRequestThreshold)
	s.Equal(int64(10<<20), cfg.Validation.MaxBodyBytes)
}

func (s *ConfigSuite) TestLoadRejectsInvalidValues() {
	cases := map[string]string{
		"bad cidr":           "whitelist: [\"not-a-cidr\"]\n",
		"zero threshold":     "brute_force: {threshold: 0, lookback: 1h, block_duration: 30m}\n",
		"hour below minute":  "classes: {read: {burst_capacity: 1, refill_per_second: 1, per_minute: 100, per_hour: 10, per_day: 1000}}\n",
		"unknown class rule": "class_rules: [{path_prefix: /x, class: bulk}]\n",
		"relative prefix":    "excluded_path_prefixes: [health]\n",
	}
	for name, content := range cases {
		s.Run(name, func() {
			_, err := Load(s.writeFile(content))
			s.Error(err)
		})
	}
}

func (s *ConfigSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.Error(err)
}

func TestClassFor(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		method string
		path   string
		want   models.EndpointClass
	}{
		{http.MethodPost, "/auth/login", models.ClassAuth},
		{http.MethodGet, "/auth/userinfo", models.ClassAuth},
		{http.MethodDelete, "/admin/users/1", models.ClassSensitive},
		{http.MethodPost, "/chat", models.ClassWrite},
		{http.MethodGet, "/chat", models.ClassRead},
		{http.MethodGet, "/auth", models.ClassAuth},
		{http.MethodGet, "/authors", models.ClassRead},
		{http.MethodGet, "/administrators", models.ClassRead},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cfg.ClassFor(tc.method, tc.path), "%s %s", tc.method, tc.path)
	}
}

func TestPathPredicates(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.IsExcluded("/health/ready"))
	assert.False(t, cfg.IsExcluded("/api/health"))
	assert.True(t, cfg.IsExcluded("/health"))
	assert.False(t, cfg.IsExcluded("/healthcare/records"))
	assert.False(t, cfg.IsExcluded("/docsearch"))
	assert.False(t, cfg.IsExcluded("/metricsfoo"))

	assert.True(t, cfg.IsFailureResponse("/auth/login", http.StatusUnauthorized))
	assert.False(t, cfg.IsFailureResponse("/auth/login", http.StatusForbidden))
	assert.False(t, cfg.IsFailureResponse("/chat", http.StatusUnauthorized))
	assert.False(t, cfg.IsFailureResponse("/authors", http.StatusUnauthorized))
}

func TestClassNamesSorted(t *testing.T) {
	require.Equal(t, []models.EndpointClass{
		models.ClassAuth, models.ClassRead, models.ClassSensitive, models.ClassWrite,
	}, DefaultConfig().ClassNames())
}
