package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authhub/pkg/platform/sentinel"
)

// Pending is an anti-forgery state issued at flow start and consumed at the
// callback.
type Pending struct {
	State     string
	Provider  string
	CreatedAt time.Time
}

// InMemoryStore holds pending OAuth states. State is intentionally
// process-local: a state issued by one instance is only valid at that
// instance, which is correct behavior with sticky callbacks and a small,
// self-cleaning set otherwise.
type InMemoryStore struct {
	mu     sync.Mutex
	states map[string]*Pending
}

// New constructs an empty in-memory state store.
func New() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]*Pending)}
}

func (s *InMemoryStore) Put(_ context.Context, pending *Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *pending
	s.states[pending.State] = &clone
	return nil
}

// Consume atomically looks up and removes a state. A state can be consumed
// exactly once: concurrent callbacks with the same state see one winner and
// the rest get ErrNotFound. Expired states are removed and reported with
// ErrExpired.
func (s *InMemoryStore) Consume(_ context.Context, state string, now time.Time, ttl time.Duration) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.states[state]
	if !ok {
		return nil, fmt.Errorf("state not found: %w", sentinel.ErrNotFound)
	}
	delete(s.states, state)

	if now.Sub(pending.CreatedAt) > ttl {
		return nil, fmt.Errorf("state issued at %s: %w", pending.CreatedAt.Format(time.RFC3339), sentinel.ErrExpired)
	}
	return pending, nil
}

// Evict removes states older than the cutoff. Covers flows the user abandoned
// before ever hitting the callback.
func (s *InMemoryStore) Evict(_ context.Context, cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for state, pending := range s.states {
		if pending.CreatedAt.Before(cutoff) {
			delete(s.states, state)
			evicted++
		}
	}
	return evicted
}

// Len reports how many states are pending.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
