package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Provider,IdentityService,SessionCreator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"authhub/internal/auth/metrics"
	"authhub/internal/auth/store/state"
	identitymodels "authhub/internal/identity/models"
	"authhub/internal/platform/config"
	"authhub/internal/provider"
	dErrors "authhub/pkg/domain-errors"
	"authhub/pkg/platform/audit"
	"authhub/pkg/platform/sentinel"
	"authhub/pkg/secrets"
)

// stateBytes gives 128 bits of entropy for the anti-forgery state.
const stateBytes = 16

var (
	// ErrUnknownProvider is returned for provider names nothing was
	// registered under.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidState covers every state failure at the callback: missing,
	// expired, already consumed, or issued for a different provider. Callers
	// get one error for all of them so the response does not reveal which.
	ErrInvalidState = errors.New("invalid state parameter")
)

// Provider is one configured OAuth2 identity provider.
type Provider interface {
	Name() string
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	FetchIdentity(ctx context.Context, accessToken string) (provider.Identity, error)
}

// IdentityService resolves provider identities to accounts.
type IdentityService interface {
	LoginOrRegisterOAuth(ctx context.Context, identity identitymodels.ProviderIdentity) (*identitymodels.UserWithAuths, error)
}

// SessionCreator issues sessions for authenticated users.
type SessionCreator interface {
	Create(ctx context.Context, user identitymodels.User, device string) (string, error)
}

// Result is a completed OAuth sign-in: the session identifier for the cookie
// plus the resolved account.
type Result struct {
	SessionID string
	User      *identitymodels.UserWithAuths
}

// Service orchestrates the authorization-code flow across all registered
// providers.
type Service struct {
	mu        sync.RWMutex
	providers map[string]Provider

	states   *state.InMemoryStore
	identity IdentityService
	sessions SessionCreator
	stateTTL time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
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

// New constructs a Service with no providers registered.
func New(identity IdentityService, sessions SessionCreator, opts ...Option) *Service {
	s := &Service{
		providers: make(map[string]Provider),
		states:    state.New(),
		identity:  identity,
		sessions:  sessions,
		stateTTL:  config.StateTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a provider under its name. Registering the same name twice is
// a wiring bug and fails loudly.
func (s *Service) Register(p Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := p.Name()
	if _, ok := s.providers[name]; ok {
		return fmt.Errorf("provider %q already registered", name)
	}
	s.providers[name] = p
	return nil
}

// Providers lists the registered provider names.
func (s *Service) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

func (s *Service) provider(name string) (Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[name]
	return p, ok
}

// StartAuthentication issues a fresh anti-forgery state and returns the
// provider's consent URL to redirect the user to. Issuing also evicts states
// from flows abandoned past their TTL.
func (s *Service) StartAuthentication(ctx context.Context, providerName string) (string, error) {
	p, ok := s.provider(providerName)
	if !ok {
		return "", fmt.Errorf("%q: %w", providerName, ErrUnknownProvider)
	}

	stateToken, err := secrets.Token(stateBytes)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate state")
	}

	now := s.now().UTC()
	if err := s.states.Put(ctx, &state.Pending{State: stateToken, Provider: providerName, CreatedAt: now}); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record state")
	}
	if evicted := s.states.Evict(ctx, now.Add(-s.stateTTL)); evicted > 0 && s.metrics != nil {
		s.metrics.AddStatesEvicted(evicted)
	}

	if s.metrics != nil {
		s.metrics.IncrementFlowStarted(providerName)
	}
	return p.AuthorizationURL(stateToken), nil
}

// HandleCallback completes the flow: it consumes the state before anything
// else touches the network, exchanges the code, fetches the profile, resolves
// the account, and issues a session.
func (s *Service) HandleCallback(ctx context.Context, providerName, code, stateToken, device string) (*Result, error) {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveCallback(start)
		}
	}()

	// Consume first. Even if everything after this fails, the state is
	// burned and cannot be replayed.
	pending, err := s.states.Consume(ctx, stateToken, s.now().UTC(), s.stateTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			s.recordFailure(ctx, providerName, "invalid_state", err)
			return nil, ErrInvalidState
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume state")
	}
	if pending.Provider != providerName {
		s.recordFailure(ctx, providerName, "invalid_state", fmt.Errorf("state issued for %q", pending.Provider))
		return nil, ErrInvalidState
	}

	p, ok := s.provider(providerName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", providerName, ErrUnknownProvider)
	}

	accessToken, err := p.Exchange(ctx, code)
	if err != nil {
		s.recordFailure(ctx, providerName, "exchange_failed", err)
		return nil, err
	}

	identity, err := p.FetchIdentity(ctx, accessToken)
	if err != nil {
		s.recordFailure(ctx, providerName, "profile_failed", err)
		return nil, err
	}

	user, err := s.identity.LoginOrRegisterOAuth(ctx, identitymodels.ProviderIdentity{
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
		Username:   identity.Username,
		Email:      identity.Email,
		AvatarURL:  identity.AvatarURL,
	})
	if err != nil {
		s.recordFailure(ctx, providerName, "error", err)
		return nil, err
	}

	sessionID, err := s.sessions.Create(ctx, user.User, device)
	if err != nil {
		s.recordFailure(ctx, providerName, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementCallback(providerName, "success")
	}
	return &Result{SessionID: sessionID, User: user}, nil
}

func (s *Service) recordFailure(ctx context.Context, providerName, outcome string, err error) {
	audit.Log(ctx, s.logger, audit.EventOAuthFailed, "provider", providerName, "reason", outcome, "error", err.Error())
	if s.metrics != nil {
		s.metrics.IncrementCallback(providerName, outcome)
	}
}
