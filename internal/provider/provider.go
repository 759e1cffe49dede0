// Package provider implements the OAuth2 identity provider adapters. Each
// adapter hides its provider's protocol quirks and hands the flow a uniform
// Identity.
package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrExchange reports a failed authorization-code exchange. The provider's
	// response body is never attached; it may echo the code.
	ErrExchange = errors.New("token exchange failed")

	// ErrProfile reports a failed or malformed profile fetch.
	ErrProfile = errors.New("profile fetch failed")
)

// Identity is a provider profile normalized to a common shape. ProviderID is
// always a string regardless of how the provider types its subject; GitHub's
// numeric ids are carried digit-for-digit.
type Identity struct {
	Provider   string
	ProviderID string
	Username   string
	Email      string
	AvatarURL  string
	Raw        map[string]any
}

// Config carries the OAuth2 client registration for one provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// httpTimeout bounds every outbound call to a provider. A hung provider must
// not hold a callback request open indefinitely.
const httpTimeout = 10 * time.Second

// maxProfileBytes caps how much of a profile response gets buffered.
const maxProfileBytes = 1 << 20

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// decodeRaw keeps the full provider payload with numbers as json.Number, so
// nothing loses precision before normalization picks its fields.
func decodeRaw(body []byte) (map[string]any, error) {
	var raw map[string]any
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
