package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	now     time.Time
	breaker *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.breaker = New("redis",
		WithFailureThreshold(3),
		WithSuccessThreshold(2),
		WithCooldown(10*time.Second),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *BreakerSuite) trip() {
	for range 3 {
		s.breaker.RecordFailure()
	}
}

// =============================================================================
// Open / Close Transitions
// =============================================================================
// Justification: the fallback store relies on the breaker to stop hitting an
// unhealthy backend and to return to it once it recovers.

func (s *BreakerSuite) TestOpensAfterConsecutiveFailures() {
	s.False(s.breaker.RecordFailure().Opened)
	s.False(s.breaker.RecordFailure().Opened)
	s.True(s.breaker.RecordFailure().Opened)
	s.Equal(StateOpen, s.breaker.State())
	s.False(s.breaker.Allow())
}

func (s *BreakerSuite) TestSuccessResetsFailureCount() {
	s.breaker.RecordFailure()
	s.breaker.RecordFailure()
	s.breaker.RecordSuccess()
	s.False(s.breaker.RecordFailure().Opened)
	s.Equal(StateClosed, s.breaker.State())
}

func (s *BreakerSuite) TestHalfOpenAfterCooldown() {
	s.trip()
	s.now = s.now.Add(9 * time.Second)
	s.False(s.breaker.Allow(), "still cooling down")

	s.now = s.now.Add(time.Second)
	s.True(s.breaker.Allow())
	s.Equal(StateHalfOpen, s.breaker.State())
}

func (s *BreakerSuite) TestProbeSuccessesClose() {
	s.trip()
	s.now = s.now.Add(10 * time.Second)
	s.Require().True(s.breaker.Allow())

	s.False(s.breaker.RecordSuccess().Closed)
	s.True(s.breaker.RecordSuccess().Closed)
	s.Equal(StateClosed, s.breaker.State())
}

func (s *BreakerSuite) TestProbeFailureReopens() {
	s.trip()
	s.now = s.now.Add(10 * time.Second)
	s.Require().True(s.breaker.Allow())

	s.breaker.RecordFailure()
	s.Equal(StateOpen, s.breaker.State())
	s.False(s.breaker.Allow(), "cooldown restarts on probe failure")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
}
