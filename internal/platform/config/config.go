package config

import (
	"os"
	"time"
)

// StateTTL bounds how long a pending OAuth state stays valid. Anything older
// is treated as forged or abandoned.
const StateTTL = 5 * time.Minute

// Provider holds the credentials for one external identity provider.
type Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Server captures process-level configuration. The storage backend is
// resolved once here and fixed for the process lifetime.
type Server struct {
	Addr            string
	StorageBackend  string // "memory" or "postgres"
	DatabaseURL     string
	RedisURL        string // optional; enables the Redis session backend
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	Providers       map[string]Provider
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AUTHHUB_ADDR")
	if addr == "" {
		addr = ":3000"
	}

	backend := os.Getenv("STORAGE_BACKEND")
	if backend == "" {
		backend = "memory"
	}

	sessionTTL := durationFromEnv("SESSION_TTL", 24*time.Hour)
	cleanupInterval := durationFromEnv("SESSION_CLEANUP_INTERVAL", time.Hour)

	providers := map[string]Provider{}
	if p, ok := providerFromEnv("GITHUB"); ok {
		providers["github"] = p
	}
	if p, ok := providerFromEnv("GOOGLE"); ok {
		providers["google"] = p
	}

	return Server{
		Addr:            addr,
		StorageBackend:  backend,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		SessionTTL:      sessionTTL,
		CleanupInterval: cleanupInterval,
		Providers:       providers,
	}
}

func providerFromEnv(prefix string) (Provider, bool) {
	p := Provider{
		ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
		ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
		RedirectURI:  os.Getenv(prefix + "_REDIRECT_URI"),
	}
	if p.ClientID == "" || p.ClientSecret == "" || p.RedirectURI == "" {
		return Provider{}, false
	}
	return p, true
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
