package models

import (
	"time"

	identity "authhub/internal/identity/models"
)

// Session is a server-side login session. UserData is a denormalized snapshot
// of the user at login time; it goes stale on purpose and is refreshed
// explicitly via the manager.
type Session struct {
	ID             string        `json:"id"`
	UserID         string        `json:"userId"`
	UserData       identity.User `json:"userData"`
	Device         string        `json:"device"`
	CreatedAt      time.Time     `json:"createdAt"`
	ExpiresAt      time.Time     `json:"expiresAt"`
	LastAccessedAt time.Time     `json:"lastAccessedAt"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Summary is the caller-facing view of a session, safe to show a user on a
// "your devices" page. It never carries the session identifier of anyone
// else's cookie, only the user's own.
type Summary struct {
	ID             string    `json:"id"`
	Device         string    `json:"device"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	Current        bool      `json:"current"`
}
