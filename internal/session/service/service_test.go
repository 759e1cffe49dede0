package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identity "authhub/internal/identity/models"
	sessionstore "authhub/internal/session/store/session"
)

type ManagerSuite struct {
	suite.Suite
	store   *sessionstore.MemoryStore
	manager *Manager
	clock   time.Time
}

func (s *ManagerSuite) SetupTest() {
	s.store = sessionstore.NewMemory()
	s.clock = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.manager = New(s.store, 24*time.Hour, WithClock(func() time.Time { return s.clock }))
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) user(id string) identity.User {
	return identity.User{ID: id, Username: "u-" + id, Preferences: identity.DefaultPreferences()}
}

func (s *ManagerSuite) TestCreate() {
	ctx := context.Background()

	id, err := s.manager.Create(ctx, s.user("alice"), "Firefox on Linux")
	s.Require().NoError(err)
	s.Len(id, 64, "32 random bytes, hex encoded")

	other, err := s.manager.Create(ctx, s.user("alice"), "Safari on iOS")
	s.Require().NoError(err)
	s.NotEqual(id, other, "every session gets a fresh identifier")

	session, err := s.manager.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(session)
	s.Equal("alice", session.UserID)
	s.Equal("u-alice", session.UserData.Username)
	s.Equal("Firefox on Linux", session.Device)
	s.Equal(s.clock.Add(24*time.Hour), session.ExpiresAt)
}

func (s *ManagerSuite) TestGet() {
	ctx := context.Background()
	id, err := s.manager.Create(ctx, s.user("bob"), "")
	s.Require().NoError(err)

	s.Run("refreshes last access time", func() {
		s.clock = s.clock.Add(time.Hour)
		session, err := s.manager.Get(ctx, id)
		s.Require().NoError(err)
		s.Require().NotNil(session)
		s.Equal(s.clock, session.LastAccessedAt)
	})

	s.Run("returns nil for unknown id without error", func() {
		session, err := s.manager.Get(ctx, "deadbeef")
		s.Require().NoError(err)
		s.Nil(session)
	})

	s.Run("returns nil for empty id", func() {
		session, err := s.manager.Get(ctx, "")
		s.Require().NoError(err)
		s.Nil(session)
	})

	s.Run("expired session is dropped on lookup", func() {
		s.clock = s.clock.Add(25 * time.Hour)
		session, err := s.manager.Get(ctx, id)
		s.Require().NoError(err)
		s.Nil(session)

		// Gone from the store as well, not just filtered.
		sessions, err := s.store.ListByUser(ctx, "bob")
		s.Require().NoError(err)
		s.Empty(sessions)
	})
}

func (s *ManagerSuite) TestAccessDoesNotExtendExpiry() {
	ctx := context.Background()
	id, err := s.manager.Create(ctx, s.user("carol"), "")
	s.Require().NoError(err)

	s.clock = s.clock.Add(23 * time.Hour)
	session, err := s.manager.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(session)

	// Access at hour 23 must not push the deadline past hour 24.
	s.clock = s.clock.Add(2 * time.Hour)
	session, err = s.manager.Get(ctx, id)
	s.Require().NoError(err)
	s.Nil(session)
}

func (s *ManagerSuite) TestUpdateUserData() {
	ctx := context.Background()
	id, err := s.manager.Create(ctx, s.user("dave"), "")
	s.Require().NoError(err)

	fresh := s.user("dave")
	fresh.Username = "renamed"
	updated, err := s.manager.UpdateUserData(ctx, id, fresh)
	s.Require().NoError(err)
	s.True(updated)

	session, err := s.manager.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal("renamed", session.UserData.Username)

	updated, err = s.manager.UpdateUserData(ctx, "missing", fresh)
	s.Require().NoError(err)
	s.False(updated)
}

func (s *ManagerSuite) TestDestroy() {
	ctx := context.Background()
	id, err := s.manager.Create(ctx, s.user("eve"), "")
	s.Require().NoError(err)

	destroyed, err := s.manager.Destroy(ctx, id)
	s.Require().NoError(err)
	s.True(destroyed)

	session, err := s.manager.Get(ctx, id)
	s.Require().NoError(err)
	s.Nil(session)

	destroyed, err = s.manager.Destroy(ctx, id)
	s.Require().NoError(err)
	s.False(destroyed, "destroy is idempotent")
}

func (s *ManagerSuite) TestDestroyAllForUser() {
	ctx := context.Background()
	for range 3 {
		_, err := s.manager.Create(ctx, s.user("frank"), "")
		s.Require().NoError(err)
	}
	keep, err := s.manager.Create(ctx, s.user("grace"), "")
	s.Require().NoError(err)

	count, err := s.manager.DestroyAllForUser(ctx, "frank")
	s.Require().NoError(err)
	s.Equal(3, count)

	session, err := s.manager.Get(ctx, keep)
	s.Require().NoError(err)
	s.NotNil(session, "other users' sessions survive")
}

func (s *ManagerSuite) TestActiveSessionsForUser() {
	ctx := context.Background()

	oldest, err := s.manager.Create(ctx, s.user("heidi"), "Firefox on Linux")
	s.Require().NoError(err)
	s.clock = s.clock.Add(time.Minute)
	middle, err := s.manager.Create(ctx, s.user("heidi"), "Chrome on Windows")
	s.Require().NoError(err)
	s.clock = s.clock.Add(time.Minute)
	newest, err := s.manager.Create(ctx, s.user("heidi"), "Safari on iOS")
	s.Require().NoError(err)

	summaries, err := s.manager.ActiveSessionsForUser(ctx, "heidi", middle)
	s.Require().NoError(err)
	s.Require().Len(summaries, 3)
	s.Equal(newest, summaries[0].ID, "most recently used first")
	s.Equal(middle, summaries[1].ID)
	s.Equal(oldest, summaries[2].ID)
	s.True(summaries[1].Current)
	s.False(summaries[0].Current)

	s.Run("touching a session reorders the listing", func() {
		s.clock = s.clock.Add(time.Minute)
		_, err := s.manager.Get(ctx, oldest)
		s.Require().NoError(err)

		summaries, err := s.manager.ActiveSessionsForUser(ctx, "heidi", "")
		s.Require().NoError(err)
		s.Equal(oldest, summaries[0].ID)
	})

	s.Run("expired sessions are filtered out", func() {
		s.clock = s.clock.Add(25 * time.Hour)
		summaries, err := s.manager.ActiveSessionsForUser(ctx, "heidi", "")
		s.Require().NoError(err)
		s.Empty(summaries)
	})
}

func (s *ManagerSuite) TestCleanupExpired() {
	ctx := context.Background()
	_, err := s.manager.Create(ctx, s.user("ivan"), "")
	s.Require().NoError(err)
	s.clock = s.clock.Add(time.Hour)
	live, err := s.manager.Create(ctx, s.user("ivan"), "")
	s.Require().NoError(err)

	s.clock = s.clock.Add(23*time.Hour + time.Minute) // first expired, second not
	count, err := s.manager.CleanupExpired(ctx)
	s.Require().NoError(err)
	s.Equal(1, count)

	session, err := s.manager.Get(ctx, live)
	s.Require().NoError(err)
	s.NotNil(session)
}

func (s *ManagerSuite) TestRunStopsOnContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.manager.Run(ctx, 10*time.Millisecond)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.Require().ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("sweep loop did not stop")
	}
}
