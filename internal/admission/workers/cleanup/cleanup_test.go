package cleanup

// Justification: the sweep is the only background mutation of admission
// state. These tests pin the eviction contract against the real in-memory
// stores and check that one failing sweeper does not starve the other.

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"shieldgate/internal/admission/metrics"
	"shieldgate/internal/admission/models"
	rlstore "shieldgate/internal/admission/store/ratelimit"
	repstore "shieldgate/internal/admission/store/reputation"
	"shieldgate/pkg/testutil"
)

type failingSweeper struct {
	calls int
}

func (f *failingSweeper) Sweep(context.Context, time.Time) (int, error) {
	f.calls++
	return 0, errors.New("sweep failed")
}

type CleanupSuite struct {
	suite.Suite
	clock      *testutil.Clock
	rateLimits *rlstore.InMemoryStore
	reputation *repstore.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
}

func TestCleanupSuite(t *testing.T) {
	suite.Run(t, new(CleanupSuite))
}

func (s *CleanupSuite) SetupTest() {
	s.clock = testutil.NewClock()
	s.rateLimits = rlstore.NewInMemoryStore()
	s.reputation = repstore.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.rateLimits, s.reputation,
		WithClock(s.clock.Now),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *CleanupSuite) seed() {
	ctx := context.Background()
	policy := models.Policy{BurstCapacity: 5, RefillPerSecond: 1, PerMinute: 10, PerHour: 100, PerDay: 1000}
	_, err := s.rateLimits.Check(ctx, "rl:ip_c203.0.113.9:read", policy, s.clock.Now())
	s.Require().NoError(err)
	_, err = s.reputation.RecordFailure(ctx, testutil.PublicIP1, models.BruteForcePolicy{
		Threshold: 5, Lookback: time.Hour, BlockDuration: 30 * time.Minute,
	}, s.clock.Now())
	s.Require().NoError(err)
}

func (s *CleanupSuite) TestRunOnceKeepsActiveState() {
	s.seed()

	res, err := s.service.RunOnce(context.Background())

	s.Require().NoError(err)
	s.Zero(res.RateLimitsEvicted)
	s.Zero(res.ReputationEvicted)
	s.Equal(1, s.rateLimits.Len())
	s.Equal(1, s.reputation.Len())
}

func (s *CleanupSuite) TestRunOnceEvictsIdleState() {
	s.seed()
	s.clock.Advance(25 * time.Hour)

	res, err := s.service.RunOnce(context.Background())

	s.Require().NoError(err)
	s.Equal(1, res.RateLimitsEvicted)
	s.Equal(1, res.ReputationEvicted)
	s.Zero(s.rateLimits.Len())
	s.Zero(s.reputation.Len())
	s.InDelta(1, promtestutil.ToFloat64(s.metrics.CleanupRunsTotal.WithLabelValues("success")), 0)
	s.InDelta(1, promtestutil.ToFloat64(s.metrics.CleanupEvictionsTotal.WithLabelValues("ratelimit")), 0)
}

func (s *CleanupSuite) TestFailingSweeperDoesNotStopOther() {
	s.seed()
	s.clock.Advance(25 * time.Hour)
	failing := &failingSweeper{}
	svc := New(failing, s.reputation, WithClock(s.clock.Now), WithMetrics(s.metrics))

	res, err := svc.RunOnce(context.Background())

	s.Require().Error(err)
	s.Contains(err.Error(), "sweep rate limits")
	s.Equal(1, failing.calls)
	s.Equal(1, res.ReputationEvicted)
	s.InDelta(1, promtestutil.ToFloat64(s.metrics.CleanupRunsTotal.WithLabelValues("error")), 0)
}

func (s *CleanupSuite) TestNilSweepersAreSkipped() {
	res, err := New(nil, nil).RunOnce(context.Background())
	s.Require().NoError(err)
	s.Zero(res.RateLimitsEvicted)
}

func (s *CleanupSuite) TestStartStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(s.rateLimits, s.reputation, WithInterval(time.Millisecond), WithClock(s.clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("worker did not stop")
	}
}
