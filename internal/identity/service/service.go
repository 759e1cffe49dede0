package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"authhub/internal/identity/metrics"
	"authhub/internal/identity/models"
	"authhub/internal/identity/store"
	dErrors "authhub/pkg/domain-errors"
	"authhub/pkg/platform/audit"
	"authhub/pkg/platform/sentinel"
	"authhub/pkg/platform/tx"
	"authhub/pkg/secrets"
)

// Service is the single entry point for account operations. Handlers and the
// OAuth flow never touch the stores directly.
type Service struct {
	users   store.UserStore
	auths   store.AuthStore
	runner  tx.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service. The runner scopes user+credential creation to one
// transaction on backends that support it; pass tx.NoopRunner for memory.
func New(users store.UserStore, auths store.AuthStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{users: users, auths: auths, runner: runner, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterLocal creates a user together with a password credential. Either
// both records exist afterwards or neither does.
func (s *Service) RegisterLocal(ctx context.Context, email, password, username string) (*models.UserWithAuths, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if username = strings.TrimSpace(username); username == "" {
		username = email[:strings.Index(email, "@")]
	}

	// Hash before opening the transaction; bcrypt takes ~100ms.
	hash, err := secrets.Hash(password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := s.now().UTC()
	user := &models.User{
		ID:          uuid.NewString(),
		Username:    username,
		Email:       strings.ToLower(email),
		Preferences: models.DefaultPreferences(),
		CreatedAt:   now,
		LastLoginAt: now,
	}
	auth := &models.Authentication{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Provider:     models.ProviderLocal,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		CreatedAt:    now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		if err := s.auths.CreateLocal(ctx, auth); err != nil {
			// Under a real transaction the rollback covers this; on the
			// memory backend the explicit delete undoes the orphan user.
			_ = s.users.Delete(ctx, user.ID)
			return err
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmailTaken), errors.Is(err, store.ErrDuplicateLocalAuth):
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register user")
		}
	}

	s.logAudit(ctx, audit.EventUserRegistered, "user_id", user.ID, "email", user.Email)
	if s.metrics != nil {
		s.metrics.IncrementRegistration()
	}

	return s.withAuths(ctx, user)
}

// LoginLocal verifies a password credential. It returns (nil, nil) when the
// email is unknown or the password wrong; callers cannot distinguish the two,
// and a dummy hash comparison keeps the timing flat as well.
func (s *Service) LoginLocal(ctx context.Context, email, password string) (*models.UserWithAuths, error) {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveLogin(start)
		}
	}()

	auth, err := s.auths.FindLocalByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			secrets.VerifyDummy(password)
			s.recordLoginFailure(ctx, email)
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up credential")
	}

	if err := secrets.Verify(password, auth.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.recordLoginFailure(ctx, email)
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	user, err := s.users.FindByID(ctx, auth.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login")
	}
	user.LastLoginAt = now

	s.logAudit(ctx, audit.EventLoginSucceeded, "user_id", user.ID)
	if s.metrics != nil {
		s.metrics.IncrementLogin(true)
	}

	return s.withAuths(ctx, user)
}

// LoginOrRegisterOAuth resolves an external identity to a user, creating the
// account on first sight. Duplicate first sign-ins are safe: if another
// request linked the same subject concurrently, the loser retries the lookup.
func (s *Service) LoginOrRegisterOAuth(ctx context.Context, identity models.ProviderIdentity) (*models.UserWithAuths, error) {
	if identity.Provider == "" || identity.ProviderID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "provider identity is incomplete")
	}

	userID, err := s.auths.FindUserByProvider(ctx, identity.Provider, identity.ProviderID)
	switch {
	case err == nil:
		return s.loginExisting(ctx, userID, identity.Provider)
	case errors.Is(err, sentinel.ErrNotFound):
		// first sign-in, fall through to registration
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve provider identity")
	}

	now := s.now().UTC()
	user := &models.User{
		ID:          uuid.NewString(),
		Username:    identity.Username,
		Email:       strings.ToLower(identity.Email),
		AvatarURL:   identity.AvatarURL,
		Preferences: models.DefaultPreferences(),
		CreatedAt:   now,
		LastLoginAt: now,
	}
	if user.Username == "" {
		user.Username = identity.Provider + "-user"
	}
	auth := &models.Authentication{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
		Email:      strings.ToLower(identity.Email),
		CreatedAt:  now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		if err := s.auths.CreateOAuth(ctx, auth); err != nil {
			_ = s.users.Delete(ctx, user.ID)
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyLinked) {
			// Lost a race with a concurrent first sign-in of the same
			// subject. The winner's account is the account.
			userID, lookupErr := s.auths.FindUserByProvider(ctx, identity.Provider, identity.ProviderID)
			if lookupErr != nil {
				return nil, dErrors.Wrap(lookupErr, dErrors.CodeInternal, "failed to resolve provider identity")
			}
			return s.loginExisting(ctx, userID, identity.Provider)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register oauth user")
	}

	s.logAudit(ctx, audit.EventOAuthLogin, "user_id", user.ID, "provider", identity.Provider, "new_user", true)
	if s.metrics != nil {
		s.metrics.IncrementOAuthLogin(identity.Provider, true)
	}

	return s.withAuths(ctx, user)
}

func (s *Service) loginExisting(ctx context.Context, userID, provider string) (*models.UserWithAuths, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login")
	}
	user.LastLoginAt = now

	s.logAudit(ctx, audit.EventOAuthLogin, "user_id", user.ID, "provider", provider, "new_user", false)
	if s.metrics != nil {
		s.metrics.IncrementOAuthLogin(provider, false)
	}

	return s.withAuths(ctx, user)
}

// GetUserWithAuths loads a user and the authentication methods linked to it.
// Returns (nil, nil) when the user does not exist.
func (s *Service) GetUserWithAuths(ctx context.Context, userID string) (*models.UserWithAuths, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return s.withAuths(ctx, user)
}

// UpdatePreferences merges a partial preferences update and returns the
// updated user.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, patch models.PreferencesPatch) (*models.User, error) {
	user, err := s.users.ApplyPreferences(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update preferences")
	}
	if s.metrics != nil {
		s.metrics.IncrementProfileUpdate()
	}
	return user, nil
}

// UpdateProfile merges a partial profile update and returns the updated user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.User, error) {
	user, err := s.users.ApplyProfile(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	if s.metrics != nil {
		s.metrics.IncrementProfileUpdate()
	}
	return user, nil
}

func (s *Service) withAuths(ctx context.Context, user *models.User) (*models.UserWithAuths, error) {
	methods, err := s.auths.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list auth methods")
	}
	return &models.UserWithAuths{User: *user, LinkedProviders: methods}, nil
}

func (s *Service) recordLoginFailure(ctx context.Context, email string) {
	s.logAudit(ctx, audit.EventLoginFailed, "email", strings.ToLower(strings.TrimSpace(email)))
	if s.metrics != nil {
		s.metrics.IncrementLogin(false)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attrList ...any) {
	audit.Log(ctx, s.logger, event, attrList...)
}
