package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const githubUserInfoURL = "https://api.github.com/user"

// GitHub adapts the GitHub OAuth2 flow. GitHub is not OIDC: the profile comes
// from the REST API rather than an ID token.
type GitHub struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// NewGitHub constructs a GitHub adapter from a client registration.
func NewGitHub(cfg Config) *GitHub {
	return &GitHub{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoints.GitHub,
		},
		userInfoURL: githubUserInfoURL,
		client:      newHTTPClient(),
	}
}

func (g *GitHub) Name() string {
	return "github"
}

// AuthorizationURL builds the consent URL carrying the anti-forgery state.
func (g *GitHub) AuthorizationURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (g *GitHub) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("github: %w: %w", ErrExchange, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("github: empty access token: %w", ErrExchange)
	}
	return token.AccessToken, nil
}

// githubProfile mirrors the fields of the /user response this adapter reads.
// The numeric id is decoded as json.Number so 64-bit ids survive unmangled.
type githubProfile struct {
	ID        json.Number `json:"id"`
	Login     string      `json:"login"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	AvatarURL string      `json:"avatar_url"`
}

// FetchIdentity loads the user's profile with the access token and normalizes
// it.
func (g *GitHub) FetchIdentity(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("github: %w: %w", ErrProfile, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("github: %w: %w", ErrProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("github: status %d: %w", resp.StatusCode, ErrProfile)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return Identity{}, fmt.Errorf("github: read profile: %w: %w", ErrProfile, err)
	}

	var profile githubProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return Identity{}, fmt.Errorf("github: decode profile: %w: %w", ErrProfile, err)
	}
	raw, err := decodeRaw(body)
	if err != nil {
		return Identity{}, fmt.Errorf("github: decode profile: %w: %w", ErrProfile, err)
	}
	if profile.ID.String() == "" {
		return Identity{}, fmt.Errorf("github: profile has no id: %w", ErrProfile)
	}

	username := profile.Login
	if profile.Name != "" {
		username = profile.Name
	}
	return Identity{
		Provider:   g.Name(),
		ProviderID: profile.ID.String(),
		Username:   username,
		Email:      profile.Email,
		AvatarURL:  profile.AvatarURL,
		Raw:        raw,
	}, nil
}
