// Package memory keeps security events in process memory, for tests and
// local runs without a database.
package memory

import (
	"context"
	"sync"

	audit "shieldgate/pkg/platform/audit"
)

// Store is a bounded in-memory audit.Store. Once limit is reached the
// oldest events are discarded.
type Store struct {
	mu     sync.RWMutex
	events []audit.SecurityEvent
	limit  int
}

// New creates a store retaining at most limit events; limit <= 0 means 10000.
func New(limit int) *Store {
	if limit <= 0 {
		limit = 10000
	}
	return &Store{limit: limit}
}

func (s *Store) Append(_ context.Context, event audit.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if over := len(s.events) - s.limit; over > 0 {
		s.events = append(s.events[:0:0], s.events[over:]...)
	}
	return nil
}

// List returns a copy of the stored events in arrival order.
func (s *Store) List() []audit.SecurityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.SecurityEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ListByKind returns stored events of the given kind.
func (s *Store) ListByKind(kind audit.Kind) []audit.SecurityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.SecurityEvent
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
