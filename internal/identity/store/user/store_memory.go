package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authhub/internal/identity/models"
	"authhub/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
// InMemoryStore stores user profiles in memory for tests/dev.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

// New constructs an empty in-memory user store.
func New() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]*models.User)}
}

func (s *InMemoryStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s already exists: %w", user.ID, sentinel.ErrConflict)
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	clone := *user
	return &clone, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	delete(s.users, id)
	return nil
}

func (s *InMemoryStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.LastLoginAt = at
	return nil
}

// ApplyPreferences merges the patch under the store lock so concurrent
// partial updates to different fields both land.
func (s *InMemoryStore) ApplyPreferences(_ context.Context, id string, patch models.PreferencesPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.Preferences = patch.Apply(user.Preferences)
	clone := *user
	return &clone, nil
}

func (s *InMemoryStore) ApplyProfile(_ context.Context, id string, patch models.ProfilePatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.Profile = patch.Apply(user.Profile)
	clone := *user
	return &clone, nil
}
