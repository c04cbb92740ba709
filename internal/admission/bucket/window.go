package bucket

import (
	"slices"
	"time"
)

// SlidingWindow counts events in the trailing Size. A timestamp t counts at
// instant now iff now-Size < t; older entries are pruned lazily.
type SlidingWindow struct {
	size   time.Duration
	limit  int
	stamps []time.Time
}

// NewSlidingWindow creates an empty window with the given ceiling.
func NewSlidingWindow(size time.Duration, limit int) *SlidingWindow {
	return &SlidingWindow{size: size, limit: limit}
}

// Limit returns the ceiling.
func (w *SlidingWindow) Limit() int {
	return w.limit
}

// Count prunes expired entries and returns the number still in the window.
func (w *SlidingWindow) Count(now time.Time) int {
	w.prune(now)
	return len(w.stamps)
}

// HasCapacity reports whether one more event fits.
func (w *SlidingWindow) HasCapacity(now time.Time) bool {
	return w.Count(now) < w.limit
}

// Record adds an event at now. Callers check HasCapacity first. A stamp
// older than the newest one is placed in order.
func (w *SlidingWindow) Record(now time.Time) {
	w.prune(now)
	w.stamps = InsertStamp(w.stamps, now)
}

// Remaining returns the unused capacity, never negative.
func (w *SlidingWindow) Remaining(now time.Time) int {
	return max(w.limit-w.Count(now), 0)
}

// ResetAt is when the oldest counted event leaves the window, or now when
// the window is empty.
func (w *SlidingWindow) ResetAt(now time.Time) time.Time {
	if w.Count(now) == 0 {
		return now
	}
	return w.stamps[0].Add(w.size)
}

// RetryAfter is how long until one more event fits.
func (w *SlidingWindow) RetryAfter(now time.Time) time.Duration {
	n := w.Count(now)
	if n < w.limit {
		return 0
	}
	// The window frees a slot once the entry at n-limit expires.
	return w.stamps[n-w.limit].Add(w.size).Sub(now)
}

// LastEvent returns the newest recorded instant, zero if none.
func (w *SlidingWindow) LastEvent() time.Time {
	if len(w.stamps) == 0 {
		return time.Time{}
	}
	return w.stamps[len(w.stamps)-1]
}

func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.size)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	w.stamps = append(w.stamps[:0], w.stamps[i:]...)
}

// InsertStamp adds t to the ascending stamps, keeping them sorted. Arrivals
// are usually in order, so the search runs from the tail.
func InsertStamp(stamps []time.Time, t time.Time) []time.Time {
	i := len(stamps)
	for i > 0 && stamps[i-1].After(t) {
		i--
	}
	return slices.Insert(stamps, i, t)
}
