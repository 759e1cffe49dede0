//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	identitymodels "authhub/internal/identity/models"
	"authhub/internal/identity/store/user"
	"authhub/internal/session/models"
	"authhub/internal/session/store/session"
	"authhub/pkg/platform/sentinel"
	"authhub/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	users    *user.PostgresStore
	store    *session.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.users = user.NewPostgres(s.postgres.DB)
	s.store = session.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "sessions", "authentications", "users"))
}

func (s *PostgresStoreSuite) createUser() identitymodels.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := identitymodels.User{
		ID:          uuid.NewString(),
		Username:    "sess-owner",
		Preferences: identitymodels.DefaultPreferences(),
		CreatedAt:   now,
		LastLoginAt: now,
	}
	s.Require().NoError(s.users.Create(context.Background(), &u))
	return u
}

func (s *PostgresStoreSuite) newSession(owner identitymodels.User, expiresIn time.Duration) *models.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Session{
		ID:             uuid.NewString(),
		UserID:         owner.ID,
		UserData:       owner,
		Device:         "Chrome on macOS",
		CreatedAt:      now,
		ExpiresAt:      now.Add(expiresIn),
		LastAccessedAt: now,
	}
}

func (s *PostgresStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	owner := s.createUser()
	sess := s.newSession(owner, time.Hour)
	s.Require().NoError(s.store.Save(ctx, sess))

	found, err := s.store.FindByID(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, found.ID)
	s.Equal(owner.ID, found.UserID)
	s.Equal(owner.Username, found.UserData.Username, "snapshot survives the JSONB round trip")
	s.Equal("Chrome on macOS", found.Device)
	s.WithinDuration(sess.ExpiresAt, found.ExpiresAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestSaveUpserts() {
	ctx := context.Background()
	owner := s.createUser()
	sess := s.newSession(owner, time.Hour)
	s.Require().NoError(s.store.Save(ctx, sess))

	sess.LastAccessedAt = sess.LastAccessedAt.Add(10 * time.Minute)
	sess.UserData.Username = "renamed"
	s.Require().NoError(s.store.Save(ctx, sess))

	found, err := s.store.FindByID(ctx, sess.ID)
	s.Require().NoError(err)
	s.WithinDuration(sess.LastAccessedAt, found.LastAccessedAt, time.Millisecond)
	s.Equal("renamed", found.UserData.Username)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), uuid.NewString())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	owner := s.createUser()
	sess := s.newSession(owner, time.Hour)
	s.Require().NoError(s.store.Save(ctx, sess))

	deleted, err := s.store.Delete(ctx, sess.ID)
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.store.Delete(ctx, sess.ID)
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *PostgresStoreSuite) TestDeleteByUser() {
	ctx := context.Background()
	owner := s.createUser()
	other := s.createUser()
	s.Require().NoError(s.store.Save(ctx, s.newSession(owner, time.Hour)))
	s.Require().NoError(s.store.Save(ctx, s.newSession(owner, time.Hour)))
	keep := s.newSession(other, time.Hour)
	s.Require().NoError(s.store.Save(ctx, keep))

	count, err := s.store.DeleteByUser(ctx, owner.ID)
	s.Require().NoError(err)
	s.Equal(2, count)

	_, err = s.store.FindByID(ctx, keep.ID)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestDeleteExpired() {
	ctx := context.Background()
	owner := s.createUser()
	live := s.newSession(owner, time.Hour)
	dead := s.newSession(owner, -time.Minute)
	s.Require().NoError(s.store.Save(ctx, live))
	s.Require().NoError(s.store.Save(ctx, dead))

	count, err := s.store.DeleteExpired(ctx, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(1, count)

	_, err = s.store.FindByID(ctx, dead.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByUser() {
	ctx := context.Background()
	owner := s.createUser()
	s.Require().NoError(s.store.Save(ctx, s.newSession(owner, time.Hour)))
	s.Require().NoError(s.store.Save(ctx, s.newSession(owner, time.Hour)))

	sessions, err := s.store.ListByUser(ctx, owner.ID)
	s.Require().NoError(err)
	s.Len(sessions, 2)
}
