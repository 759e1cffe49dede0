package authentication

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"authhub/internal/identity/models"
	"authhub/internal/identity/store"
	"authhub/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = New()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func newLocalAuth(userID, email string) *models.Authentication {
	return &models.Authentication{
		ID:           uuid.NewString(),
		UserID:       userID,
		Provider:     models.ProviderLocal,
		Email:        email,
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
		CreatedAt:    time.Now().UTC(),
	}
}

func newOAuth(userID, provider, providerID string) *models.Authentication {
	return &models.Authentication{
		ID:         uuid.NewString(),
		UserID:     userID,
		Provider:   provider,
		ProviderID: providerID,
		Email:      "linked@example.com",
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *InMemoryStoreSuite) TestCreateLocal() {
	ctx := context.Background()

	s.Run("round-trips a credential by email", func() {
		auth := newLocalAuth(uuid.NewString(), "jane@example.com")
		s.Require().NoError(s.store.CreateLocal(ctx, auth))

		found, err := s.store.FindLocalByEmail(ctx, "jane@example.com")
		s.Require().NoError(err)
		s.Equal(auth.UserID, found.UserID)
		s.Equal(auth.PasswordHash, found.PasswordHash)
	})

	s.Run("email lookup is case-insensitive", func() {
		found, err := s.store.FindLocalByEmail(ctx, "JANE@Example.COM")
		s.Require().NoError(err)
		s.Equal("jane@example.com", found.Email)
	})

	s.Run("rejects a second local credential for the same user", func() {
		userID := uuid.NewString()
		s.Require().NoError(s.store.CreateLocal(ctx, newLocalAuth(userID, "first@example.com")))
		err := s.store.CreateLocal(ctx, newLocalAuth(userID, "second@example.com"))
		s.Require().ErrorIs(err, store.ErrDuplicateLocalAuth)
	})

	s.Run("rejects a taken email", func() {
		s.Require().NoError(s.store.CreateLocal(ctx, newLocalAuth(uuid.NewString(), "taken@example.com")))
		err := s.store.CreateLocal(ctx, newLocalAuth(uuid.NewString(), "Taken@example.com"))
		s.Require().ErrorIs(err, store.ErrEmailTaken)
	})

	s.Run("returns ErrNotFound for unknown email", func() {
		_, err := s.store.FindLocalByEmail(ctx, "nobody@example.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestCreateOAuth() {
	ctx := context.Background()

	s.Run("resolves the linked user by provider subject", func() {
		auth := newOAuth(uuid.NewString(), "github", "12345")
		s.Require().NoError(s.store.CreateOAuth(ctx, auth))

		userID, err := s.store.FindUserByProvider(ctx, "github", "12345")
		s.Require().NoError(err)
		s.Equal(auth.UserID, userID)
	})

	s.Run("rejects a second link for the same subject", func() {
		s.Require().NoError(s.store.CreateOAuth(ctx, newOAuth(uuid.NewString(), "google", "sub-1")))
		err := s.store.CreateOAuth(ctx, newOAuth(uuid.NewString(), "google", "sub-1"))
		s.Require().ErrorIs(err, store.ErrAlreadyLinked)
	})

	s.Run("same subject under a different provider is a different identity", func() {
		s.Require().NoError(s.store.CreateOAuth(ctx, newOAuth(uuid.NewString(), "github", "sub-1")))
	})

	s.Run("returns ErrNotFound for unknown subject", func() {
		_, err := s.store.FindUserByProvider(ctx, "github", "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestListByUserID() {
	ctx := context.Background()
	userID := uuid.NewString()

	local := newLocalAuth(userID, "multi@example.com")
	local.CreatedAt = time.Now().UTC().Add(-time.Hour)
	s.Require().NoError(s.store.CreateLocal(ctx, local))
	s.Require().NoError(s.store.CreateOAuth(ctx, newOAuth(userID, "github", "777")))

	methods, err := s.store.ListByUserID(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(methods, 2)
	s.Equal(models.ProviderLocal, methods[0].Provider, "ordered by creation time")
	s.Equal("github", methods[1].Provider)
	for _, m := range methods {
		s.NotEmpty(m.ID)
	}

	methods, err = s.store.ListByUserID(ctx, uuid.NewString())
	s.Require().NoError(err)
	s.Empty(methods)
}
