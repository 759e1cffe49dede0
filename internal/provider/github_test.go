package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"
)

type GitHubSuite struct {
	suite.Suite
}

func TestGitHubSuite(t *testing.T) {
	suite.Run(t, new(GitHubSuite))
}

func newTestGitHub(tokenURL, userInfoURL string) *GitHub {
	g := NewGitHub(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/auth/github/callback",
	})
	if tokenURL != "" {
		g.oauth.Endpoint = oauth2.Endpoint{AuthURL: tokenURL + "/authorize", TokenURL: tokenURL + "/token"}
	}
	if userInfoURL != "" {
		g.userInfoURL = userInfoURL
	}
	return g
}

func (s *GitHubSuite) TestAuthorizationURL() {
	g := newTestGitHub("", "")
	url := g.AuthorizationURL("state-123")
	s.Contains(url, "state=state-123")
	s.Contains(url, "client_id=client-id")
	s.Contains(url, "read%3Auser")
	s.Contains(url, "user%3Aemail")
}

func (s *GitHubSuite) TestExchange() {
	s.Run("returns the access token", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/token", r.URL.Path)
			s.Require().NoError(r.ParseForm())
			s.Equal("the-code", r.FormValue("code"))
			w.Header().Set("Content-Type", "application/json")
			s.Require().NoError(json.NewEncoder(w).Encode(map[string]any{
				"access_token": "gho_token",
				"token_type":   "bearer",
			}))
		}))
		defer server.Close()

		g := newTestGitHub(server.URL, "")
		token, err := g.Exchange(context.Background(), "the-code")
		s.Require().NoError(err)
		s.Equal("gho_token", token)
	})

	s.Run("wraps provider rejection in ErrExchange", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		g := newTestGitHub(server.URL, "")
		_, err := g.Exchange(context.Background(), "bad-code")
		s.Require().ErrorIs(err, ErrExchange)
	})

	s.Run("empty token is an exchange failure", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"","token_type":"bearer"}`))
		}))
		defer server.Close()

		g := newTestGitHub(server.URL, "")
		_, err := g.Exchange(context.Background(), "the-code")
		s.Require().ErrorIs(err, ErrExchange)
	})
}

func (s *GitHubSuite) TestFetchIdentity() {
	s.Run("normalizes the profile", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("Bearer gho_token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": 9007199254740993,
				"login": "octocat",
				"name": "The Octocat",
				"email": "octo@example.com",
				"avatar_url": "https://avatars.example.com/u/1"
			}`))
		}))
		defer server.Close()

		g := newTestGitHub("", server.URL)
		identity, err := g.FetchIdentity(context.Background(), "gho_token")
		s.Require().NoError(err)
		s.Equal("github", identity.Provider)
		s.Equal("9007199254740993", identity.ProviderID, "id above 2^53 survives digit-for-digit")
		s.Equal("The Octocat", identity.Username)
		s.Equal("octo@example.com", identity.Email)
		s.Equal("https://avatars.example.com/u/1", identity.AvatarURL)
		s.Equal("octocat", identity.Raw["login"])
	})

	s.Run("falls back to login when name is null", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 42, "login": "octocat", "name": null, "email": null}`))
		}))
		defer server.Close()

		g := newTestGitHub("", server.URL)
		identity, err := g.FetchIdentity(context.Background(), "gho_token")
		s.Require().NoError(err)
		s.Equal("octocat", identity.Username)
		s.Empty(identity.Email)
	})

	s.Run("wraps API failure in ErrProfile", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		g := newTestGitHub("", server.URL)
		_, err := g.FetchIdentity(context.Background(), "expired")
		s.Require().ErrorIs(err, ErrProfile)
	})

	s.Run("profile without id is rejected", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"login": "octocat"}`))
		}))
		defer server.Close()

		g := newTestGitHub("", server.URL)
		_, err := g.FetchIdentity(context.Background(), "gho_token")
		s.Require().ErrorIs(err, ErrProfile)
	})
}
