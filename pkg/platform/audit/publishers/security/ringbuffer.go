package security

import (
	"sync"

	audit "shieldgate/pkg/platform/audit"
)

// RingBuffer is a bounded FIFO of security events. When full, Enqueue
// overwrites the oldest event and counts it as dropped.
type RingBuffer struct {
	mu      sync.Mutex
	items   []audit.SecurityEvent
	head    int
	size    int
	dropped int64
}

// NewRingBuffer creates a buffer holding at most capacity events.
// Non-positive capacities are raised to 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{items: make([]audit.SecurityEvent, capacity)}
}

// Enqueue appends event and reports whether an older event was overwritten.
func (b *RingBuffer) Enqueue(event audit.SecurityEvent) (overwrote bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.items)
	if b.size == capacity {
		b.items[b.head] = event
		b.head = (b.head + 1) % capacity
		b.dropped++
		return true
	}
	b.items[(b.head+b.size)%capacity] = event
	b.size++
	return false
}

// DequeueBatch removes and returns up to n events in arrival order.
func (b *RingBuffer) DequeueBatch(n int) []audit.SecurityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]audit.SecurityEvent, n)
	capacity := len(b.items)
	for i := range n {
		idx := (b.head + i) % capacity
		out[i] = b.items[idx]
		b.items[idx] = audit.SecurityEvent{}
	}
	b.head = (b.head + n) % capacity
	b.size -= n
	return out
}

// Len returns the number of buffered events.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped returns how many events were overwritten since creation.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
