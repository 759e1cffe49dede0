package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	identity "authhub/internal/identity/models"
	"authhub/internal/session/metrics"
	"authhub/internal/session/models"
	"authhub/internal/session/store"
	dErrors "authhub/pkg/domain-errors"
	"authhub/pkg/platform/audit"
	"authhub/pkg/platform/sentinel"
	"authhub/pkg/secrets"
)

// sessionIDBytes gives 256 bits of entropy; identifiers are unguessable and
// carry no embedded meaning.
const sessionIDBytes = 32

// Manager owns all session policy: identifier generation, TTL assignment,
// lazy expiry on read, and the ordering of session listings. Backends are
// interchangeable pure I/O.
type Manager struct {
	store   store.Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(m *Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New constructs a Manager issuing sessions with the given lifetime.
func New(st store.Store, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{store: st, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create issues a new session carrying a snapshot of the user. Returns the
// session identifier for the cookie.
func (m *Manager) Create(ctx context.Context, user identity.User, device string) (string, error) {
	id, err := secrets.Token(sessionIDBytes)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate session id")
	}

	now := m.now().UTC()
	session := &models.Session{
		ID:             id,
		UserID:         user.ID,
		UserData:       user,
		Device:         device,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.ttl),
		LastAccessedAt: now,
	}
	if err := m.store.Save(ctx, session); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}

	audit.Log(ctx, m.logger, audit.EventSessionCreated, "user_id", user.ID, "device", device)
	if m.metrics != nil {
		m.metrics.IncrementCreated()
	}
	return id, nil
}

// Get resolves a session identifier. Expired sessions are deleted on sight
// and reported as absent; live ones get their access time refreshed. Returns
// (nil, nil) when the identifier resolves to nothing usable.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, nil
	}
	session, err := m.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}

	now := m.now().UTC()
	if session.Expired(now) {
		if _, err := m.store.Delete(ctx, id); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to drop expired session")
		}
		if m.metrics != nil {
			m.metrics.IncrementExpiredLookup()
		}
		return nil, nil
	}

	session.LastAccessedAt = now
	if err := m.store.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh session")
	}
	return session, nil
}

// UpdateUserData replaces the user snapshot in a session, for callers that
// changed the profile and want the session to reflect it immediately.
// Reports whether a live session was updated.
func (m *Manager) UpdateUserData(ctx context.Context, id string, user identity.User) (bool, error) {
	session, err := m.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}
	session.UserData = user
	if err := m.store.Save(ctx, session); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update session")
	}
	return true, nil
}

// Destroy removes a session. Reports whether one existed.
func (m *Manager) Destroy(ctx context.Context, id string) (bool, error) {
	deleted, err := m.store.Delete(ctx, id)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to destroy session")
	}
	if deleted {
		audit.Log(ctx, m.logger, audit.EventSessionDestroyed, "session_id", id)
		if m.metrics != nil {
			m.metrics.IncrementDestroyed(1)
		}
	}
	return deleted, nil
}

// DestroyAllForUser removes every session of a user and returns how many
// there were.
func (m *Manager) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	count, err := m.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to destroy sessions")
	}
	if count > 0 {
		audit.Log(ctx, m.logger, audit.EventSessionsBulkDestroyed, "user_id", userID, "count", count)
		if m.metrics != nil {
			m.metrics.IncrementDestroyed(count)
		}
	}
	return count, nil
}

// ActiveSessionsForUser lists the user's live sessions, most recently used
// first. currentID marks which entry belongs to the calling request's cookie.
func (m *Manager) ActiveSessionsForUser(ctx context.Context, userID, currentID string) ([]models.Summary, error) {
	sessions, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}

	now := m.now().UTC()
	summaries := make([]models.Summary, 0, len(sessions))
	for _, session := range sessions {
		if session.Expired(now) {
			continue
		}
		summaries = append(summaries, models.Summary{
			ID:             session.ID,
			Device:         session.Device,
			CreatedAt:      session.CreatedAt,
			ExpiresAt:      session.ExpiresAt,
			LastAccessedAt: session.LastAccessedAt,
			Current:        session.ID == currentID,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastAccessedAt.After(summaries[j].LastAccessedAt)
	})
	return summaries, nil
}

// CleanupExpired removes all expired sessions and returns how many went.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	count, err := m.store.DeleteExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep sessions")
	}
	if m.metrics != nil {
		m.metrics.AddSwept(count)
	}
	return count, nil
}

// Run sweeps expired sessions on the given interval until the context is
// cancelled. Sweep failures are logged and the loop keeps going.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := m.CleanupExpired(ctx)
			if err != nil {
				if m.logger != nil {
					m.logger.ErrorContext(ctx, "session sweep failed", "error", err)
				}
				continue
			}
			if count > 0 && m.logger != nil {
				m.logger.InfoContext(ctx, "session sweep completed", "removed", count)
			}
		}
	}
}
