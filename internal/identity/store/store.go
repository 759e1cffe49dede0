// Package store defines the persistence contracts for the identity module.
// Implementations are pure I/O: uniqueness is enforced here, policy lives in
// the service layer.
package store

import (
	"context"
	"errors"
	"time"

	"authhub/internal/identity/models"
)

var (
	// ErrDuplicateLocalAuth is returned when a user already has a password
	// credential.
	ErrDuplicateLocalAuth = errors.New("local credential already exists for user")

	// ErrEmailTaken is returned when an email is already registered to a
	// password credential.
	ErrEmailTaken = errors.New("email already registered")

	// ErrAlreadyLinked is returned when a (provider, subject) pair is
	// already bound to some user.
	ErrAlreadyLinked = errors.New("provider identity already linked")
)

// UserStore persists user profiles.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	Delete(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	ApplyPreferences(ctx context.Context, id string, patch models.PreferencesPatch) (*models.User, error)
	ApplyProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.User, error)
}

// AuthStore persists authentication records.
type AuthStore interface {
	CreateLocal(ctx context.Context, auth *models.Authentication) error
	CreateOAuth(ctx context.Context, auth *models.Authentication) error
	FindLocalByEmail(ctx context.Context, email string) (*models.Authentication, error)
	FindUserByProvider(ctx context.Context, provider, providerID string) (string, error)
	ListByUserID(ctx context.Context, userID string) ([]models.AuthMethod, error)
}
