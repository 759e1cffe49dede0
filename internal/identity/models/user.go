package models

import "time"

// ProviderLocal marks a password credential as opposed to an external
// identity provider.
const ProviderLocal = "local"

// User is the identity-independent profile. How the user proves who they are
// lives in Authentication records; this struct never carries secrets.
type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email,omitempty"` // empty for provider-only accounts that released no address
	AvatarURL   string      `json:"avatarUrl,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	LastLoginAt time.Time   `json:"lastLoginAt"`
	Preferences Preferences `json:"preferences"`
	Profile     Profile     `json:"profile"`
}

// Preferences are per-user application settings.
type Preferences struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
}

// DefaultPreferences returns the settings assigned at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:         "light",
		Language:      "ja",
		Notifications: true,
	}
}

// Profile holds free-form profile fields.
type Profile struct {
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Location  string `json:"location"`
	Website   string `json:"website"`
}

// PreferencesPatch is a partial preferences update; nil fields are left
// unchanged.
type PreferencesPatch struct {
	Theme         *string `json:"theme,omitempty"`
	Language      *string `json:"language,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
}

// Apply merges the patch onto existing preferences.
func (p PreferencesPatch) Apply(prefs Preferences) Preferences {
	if p.Theme != nil {
		prefs.Theme = *p.Theme
	}
	if p.Language != nil {
		prefs.Language = *p.Language
	}
	if p.Notifications != nil {
		prefs.Notifications = *p.Notifications
	}
	return prefs
}

// ProfilePatch is a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Location  *string `json:"location,omitempty"`
	Website   *string `json:"website,omitempty"`
}

// Apply merges the patch onto an existing profile.
func (p ProfilePatch) Apply(profile Profile) Profile {
	if p.Bio != nil {
		profile.Bio = *p.Bio
	}
	if p.AvatarURL != nil {
		profile.AvatarURL = *p.AvatarURL
	}
	if p.Location != nil {
		profile.Location = *p.Location
	}
	if p.Website != nil {
		profile.Website = *p.Website
	}
	return profile
}

// Authentication links a User to one way of proving identity. Exactly one of
// PasswordHash (local) or ProviderID (external) is meaningful. Records are
// immutable after creation.
type Authentication struct {
	ID           string
	UserID       string
	Provider     string // "local" or provider name
	ProviderID   string // external subject; empty for local
	Email        string // address tied to this method, may differ from User.Email
	PasswordHash string // present only when Provider == "local"
	CreatedAt    time.Time
}

// AuthMethod is the caller-facing view of an Authentication record. It never
// includes the password hash.
type AuthMethod struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProviderIdentity is a normalized external identity handed to the facade by
// the OAuth flow.
type ProviderIdentity struct {
	Provider   string
	ProviderID string
	Username   string
	Email      string
	AvatarURL  string
}

// UserWithAuths composes a user with the authentication methods linked to it.
type UserWithAuths struct {
	User
	LinkedProviders []AuthMethod `json:"linkedProviders"`
}
