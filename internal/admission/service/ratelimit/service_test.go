package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shieldgate/internal/admission/config"
	"shieldgate/internal/admission/models"
	rlstore "shieldgate/internal/admission/store/ratelimit"
	dErrors "shieldgate/pkg/domain-errors"
	"shieldgate/pkg/requestcontext"
	"shieldgate/pkg/testutil"
)

// =============================================================================
// RateLimit Service Test Suite
// =============================================================================
// Justification: the service owns key construction, class policy lookup and
// error mapping; the stores are covered by their own contract suite.

type RateLimitServiceSuite struct {
	suite.Suite
	store   *rlstore.InMemoryStore
	service *Service
	clock   *testutil.Clock
}

func TestRateLimitServiceSuite(t *testing.T) {
	suite.Run(t, new(RateLimitServiceSuite))
}

func (s *RateLimitServiceSuite) SetupTest() {
	s.store = rlstore.NewInMemoryStore()
	s.clock = testutil.NewClock()
	var err error
	s.service, err = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithConfig(config.DefaultConfig()),
	)
	s.Require().NoError(err)
}

func (s *RateLimitServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.clock.Now())
}

func (s *RateLimitServiceSuite) TestNew() {
	_, err := New(nil)
	s.ErrorContains(err, "rate limit store is required")
}

// =============================================================================
// Check
// =============================================================================

func (s *RateLimitServiceSuite) TestCheckUsesClassPolicy() {
	key := models.NewClientKey(models.KeyPrefixIP, testutil.PublicIP1)
	for range 10 {
		res, err := s.service.Check(s.ctx(), key, models.ClassAuth)
		s.Require().NoError(err)
		s.Require().True(res.Allowed)
		s.clock.Advance(time.Second)
	}

	res, err := s.service.Check(s.ctx(), key, models.ClassAuth)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Equal(models.GateMinute, res.Gate)
	s.Equal(10, res.Limit)

	res, err = s.service.Check(s.ctx(), key, models.ClassRead)
	s.Require().NoError(err)
	s.True(res.Allowed, "classes are limited independently")
}

func (s *RateLimitServiceSuite) TestCheckRequiresClientKey() {
	_, err := s.service.Check(s.ctx(), "", models.ClassRead)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *RateLimitServiceSuite) TestStoreErrorIsUnavailable() {
	svc, err := New(failingStore{})
	s.Require().NoError(err)

	_, err = svc.Check(s.ctx(), "ip:203.0.113.9", models.ClassRead)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

// =============================================================================
// Reset
// =============================================================================

func (s *RateLimitServiceSuite) TestResetClearsEveryClass() {
	key := models.NewClientKey(models.KeyPrefixUser, "alice")
	for _, class := range []models.EndpointClass{models.ClassAuth, models.ClassWrite} {
		_, err := s.service.Check(s.ctx(), key, class)
		s.Require().NoError(err)
	}
	s.Require().Equal(2, s.store.Len())

	s.Require().NoError(s.service.Reset(s.ctx(), key))
	s.Zero(s.store.Len())
}

func (s *RateLimitServiceSuite) TestClassFor() {
	s.Equal(models.ClassAuth, s.service.ClassFor("POST", "/auth/login"))
	s.Equal(models.ClassRead, s.service.ClassFor("GET", "/chat/history"))
}

type failingStore struct{}

func (failingStore) Check(context.Context, string, models.Policy, time.Time) (*models.RateLimitResult, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Reset(context.Context, ...string) error {
	return errors.New("connection refused")
}
