package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"
)

type GoogleSuite struct {
	suite.Suite
}

func TestGoogleSuite(t *testing.T) {
	suite.Run(t, new(GoogleSuite))
}

func newTestGoogle(tokenURL, userInfoURL string) *Google {
	g := NewGoogle(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/auth/google/callback",
	})
	if tokenURL != "" {
		g.oauth.Endpoint = oauth2.Endpoint{AuthURL: tokenURL + "/auth", TokenURL: tokenURL + "/token"}
	}
	if userInfoURL != "" {
		g.userInfoURL = userInfoURL
	}
	return g
}

func (s *GoogleSuite) TestAuthorizationURL() {
	g := newTestGoogle("", "")
	url := g.AuthorizationURL("state-456")
	s.Contains(url, "state=state-456")
	s.Contains(url, "prompt=select_account")
	s.Contains(url, "scope=openid+email+profile")
}

func (s *GoogleSuite) TestExchange() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Require().NoError(r.ParseForm())
		s.Equal("authorization_code", r.FormValue("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.token","token_type":"Bearer","expires_in":3599}`))
	}))
	defer server.Close()

	g := newTestGoogle(server.URL, "")
	token, err := g.Exchange(context.Background(), "the-code")
	s.Require().NoError(err)
	s.Equal("ya29.token", token)
}

func (s *GoogleSuite) TestExchangeFailure() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	g := newTestGoogle(server.URL, "")
	_, err := g.Exchange(context.Background(), "stale-code")
	s.Require().ErrorIs(err, ErrExchange)
}

func (s *GoogleSuite) TestFetchIdentity() {
	s.Run("normalizes the profile", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("Bearer ya29.token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "110248495921238986420",
				"name": "Jane Doe",
				"email": "jane@gmail.example.com",
				"picture": "https://lh3.example.com/photo.jpg"
			}`))
		}))
		defer server.Close()

		g := newTestGoogle("", server.URL)
		identity, err := g.FetchIdentity(context.Background(), "ya29.token")
		s.Require().NoError(err)
		s.Equal("google", identity.Provider)
		s.Equal("110248495921238986420", identity.ProviderID)
		s.Equal("Jane Doe", identity.Username)
		s.Equal("jane@gmail.example.com", identity.Email)
		s.Equal("https://lh3.example.com/photo.jpg", identity.AvatarURL)
	})

	s.Run("wraps failures in ErrProfile", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"code":401}}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		g := newTestGoogle("", server.URL)
		_, err := g.FetchIdentity(context.Background(), "expired")
		s.Require().ErrorIs(err, ErrProfile)
	})

	s.Run("profile without id is rejected", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"No Subject"}`))
		}))
		defer server.Close()

		g := newTestGoogle("", server.URL)
		_, err := g.FetchIdentity(context.Background(), "ya29.token")
		s.Require().ErrorIs(err, ErrProfile)
	})
}
