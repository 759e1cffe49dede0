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

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Google adapts the Google OAuth2 flow using the userinfo endpoint.
type Google struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// NewGoogle constructs a Google adapter from a client registration.
func NewGoogle(cfg Config) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
		client:      newHTTPClient(),
	}
}

func (g *Google) Name() string {
	return "google"
}

// AuthorizationURL builds the consent URL carrying the anti-forgery state.
// select_account forces the chooser so users with several Google accounts
// don't get silently logged into the wrong one.
func (g *Google) AuthorizationURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for an access token.
func (g *Google) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google: %w: %w", ErrExchange, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("google: empty access token: %w", ErrExchange)
	}
	return token.AccessToken, nil
}

type googleProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// FetchIdentity loads the user's profile with the access token and normalizes
// it.
func (g *Google) FetchIdentity(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("google: %w: %w", ErrProfile, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("google: %w: %w", ErrProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("google: status %d: %w", resp.StatusCode, ErrProfile)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return Identity{}, fmt.Errorf("google: read profile: %w: %w", ErrProfile, err)
	}

	var profile googleProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return Identity{}, fmt.Errorf("google: decode profile: %w: %w", ErrProfile, err)
	}
	raw, err := decodeRaw(body)
	if err != nil {
		return Identity{}, fmt.Errorf("google: decode profile: %w: %w", ErrProfile, err)
	}
	if profile.ID == "" {
		return Identity{}, fmt.Errorf("google: profile has no id: %w", ErrProfile)
	}

	return Identity{
		Provider:   g.Name(),
		ProviderID: profile.ID,
		Username:   profile.Name,
		Email:      profile.Email,
		AvatarURL:  profile.Picture,
		Raw:        raw,
	}, nil
}
