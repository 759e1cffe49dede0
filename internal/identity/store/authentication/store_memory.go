package authentication

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"authhub/internal/identity/models"
	"authhub/internal/identity/store"
	"authhub/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested entity does not exist
// - Return the package-level uniqueness errors from store when a constraint
//   would be violated
// - Return wrapped errors with context for infrastructure failures
// InMemoryStore stores authentication records in memory for tests/dev.
// Uniqueness constraints mirror the partial unique indexes of the Postgres
// schema.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Authentication // by record ID

	localByEmail map[string]string // lowercased email -> record ID
	localByUser  map[string]string // user ID -> record ID
	bySubject    map[string]string // provider\x00providerID -> record ID
}

// New constructs an empty in-memory authentication store.
func New() *InMemoryStore {
	return &InMemoryStore{
		records:      make(map[string]*models.Authentication),
		localByEmail: make(map[string]string),
		localByUser:  make(map[string]string),
		bySubject:    make(map[string]string),
	}
}

func subjectKey(provider, providerID string) string {
	return provider + "\x00" + providerID
}

func (s *InMemoryStore) CreateLocal(_ context.Context, auth *models.Authentication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(auth.Email)
	if _, ok := s.localByUser[auth.UserID]; ok {
		return fmt.Errorf("user %s: %w", auth.UserID, store.ErrDuplicateLocalAuth)
	}
	if _, ok := s.localByEmail[email]; ok {
		return fmt.Errorf("email %s: %w", auth.Email, store.ErrEmailTaken)
	}

	clone := *auth
	clone.Provider = models.ProviderLocal
	s.records[clone.ID] = &clone
	s.localByEmail[email] = clone.ID
	s.localByUser[clone.UserID] = clone.ID
	return nil
}

func (s *InMemoryStore) CreateOAuth(_ context.Context, auth *models.Authentication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subjectKey(auth.Provider, auth.ProviderID)
	if _, ok := s.bySubject[key]; ok {
		return fmt.Errorf("%s/%s: %w", auth.Provider, auth.ProviderID, store.ErrAlreadyLinked)
	}

	clone := *auth
	s.records[clone.ID] = &clone
	s.bySubject[key] = clone.ID
	return nil
}

func (s *InMemoryStore) FindLocalByEmail(_ context.Context, email string) (*models.Authentication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.localByEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("local credential not found: %w", sentinel.ErrNotFound)
	}
	clone := *s.records[id]
	return &clone, nil
}

func (s *InMemoryStore) FindUserByProvider(_ context.Context, provider, providerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySubject[subjectKey(provider, providerID)]
	if !ok {
		return "", fmt.Errorf("provider identity not found: %w", sentinel.ErrNotFound)
	}
	return s.records[id].UserID, nil
}

func (s *InMemoryStore) ListByUserID(_ context.Context, userID string) ([]models.AuthMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var methods []models.AuthMethod
	for _, record := range s.records {
		if record.UserID != userID {
			continue
		}
		methods = append(methods, models.AuthMethod{
			ID:        record.ID,
			Provider:  record.Provider,
			Email:     record.Email,
			CreatedAt: record.CreatedAt,
		})
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].CreatedAt.Before(methods[j].CreatedAt)
	})
	return methods, nil
}
