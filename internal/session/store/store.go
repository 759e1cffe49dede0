// Package store defines the persistence contract for sessions. Backends are
// pure I/O: expiry policy, identifier generation, and ordering guarantees
// live in the session service.
package store

import (
	"context"
	"time"

	"authhub/internal/session/models"
)

// Store persists sessions. Save has upsert semantics so access-time refreshes
// and user-data updates go through the same path as creation.
type Store interface {
	Save(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Session, error)
}
