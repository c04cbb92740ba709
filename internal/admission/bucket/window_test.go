package bucket

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"shieldgate/pkg/testutil"
)

type SlidingWindowSuite struct {
	suite.Suite
	now time.Time
}

func TestSlidingWindowSuite(t *testing.T) {
	suite.Run(t, new(SlidingWindowSuite))
}

func (s *SlidingWindowSuite) SetupTest() {
	s.now = testutil.Epoch
}

func (s *SlidingWindowSuite) TestBoundaryIsHalfOpen() {
	w := NewSlidingWindow(time.Minute, 1)
	w.Record(s.now)

	s.False(w.HasCapacity(s.now.Add(time.Minute-time.Nanosecond)), "still inside the window")
	s.True(w.HasCapacity(s.now.Add(time.Minute)), "now-size == t no longer counts")
}

func (s *SlidingWindowSuite) TestRemainingAndResetAt() {
	w := NewSlidingWindow(time.Minute, 3)
	s.Equal(s.now, w.ResetAt(s.now), "empty window resets immediately")

	w.Record(s.now)
	w.Record(s.now.Add(10 * time.Second))
	at := s.now.Add(20 * time.Second)
	s.Equal(1, w.Remaining(at))
	s.Equal(s.now.Add(time.Minute), w.ResetAt(at))
	s.Equal(s.now.Add(10*time.Second), w.LastEvent())
}

func (s *SlidingWindowSuite) TestRetryAfterUsesEntryThatFreesASlot() {
	w := NewSlidingWindow(time.Minute, 2)
	w.Record(s.now)
	w.Record(s.now.Add(5 * time.Second))
	w.Record(s.now.Add(20 * time.Second))

	// Three entries against a ceiling of two: the second oldest must expire.
	at := s.now.Add(30 * time.Second)
	s.Equal(35*time.Second, w.RetryAfter(at))
	s.Equal(time.Duration(0), w.RetryAfter(s.now.Add(2*time.Minute)))
}

func (s *SlidingWindowSuite) TestLateStampIsKeptInOrder() {
	w := NewSlidingWindow(time.Minute, 2)
	w.Record(s.now.Add(10 * time.Second))
	// A request stamped earlier takes the lock second.
	w.Record(s.now)

	at := s.now.Add(time.Minute + time.Second)
	s.Equal(1, w.Count(at), "the earlier stamp expires first")
	s.Equal(s.now.Add(10*time.Second), w.LastEvent())
	s.Equal(s.now.Add(10*time.Second+time.Minute), w.ResetAt(at))
}

func (s *SlidingWindowSuite) TestRetryAfterWithOutOfOrderStamps() {
	w := NewSlidingWindow(time.Minute, 2)
	w.Record(s.now.Add(20 * time.Second))
	w.Record(s.now)
	w.Record(s.now.Add(5 * time.Second))

	at := s.now.Add(30 * time.Second)
	s.Equal(35*time.Second, w.RetryAfter(at), "matches the in-order arrival case")
}

func TestInsertStamp(t *testing.T) {
	base := testutil.Epoch
	stamps := []time.Time{base, base.Add(2 * time.Second), base.Add(4 * time.Second)}

	stamps = InsertStamp(stamps, base.Add(3*time.Second))
	stamps = InsertStamp(stamps, base.Add(5*time.Second))
	stamps = InsertStamp(stamps, base.Add(-time.Second))

	assert.True(t, slices.IsSortedFunc(stamps, func(a, b time.Time) int { return a.Compare(b) }))
	assert.Len(t, stamps, 6)
	assert.Equal(t, base.Add(-time.Second), stamps[0])
}

// Justification: N requests inside the window against ceiling C must admit
// exactly min(N, C) whatever the arrival pattern.
func TestSlidingWindow_AdmitsMinOfNAndCeiling(t *testing.T) {
	const ceiling = 60
	for _, n := range []int{1, 59, 60, 61, 150} {
		w := NewSlidingWindow(time.Minute, ceiling)
		start := testutil.Epoch
		offsets := make([]time.Duration, n)
		for i := range offsets {
			offsets[i] = time.Duration(rand.Int64N(int64(50 * time.Second)))
		}
		// arrivals must be monotonic for a single caller
		slices.Sort(offsets)

		admitted := 0
		for _, off := range offsets {
			at := start.Add(off)
			if w.HasCapacity(at) {
				w.Record(at)
				admitted++
			}
		}
		assert.Equal(t, min(n, ceiling), admitted, "n=%d", n)
	}
}
