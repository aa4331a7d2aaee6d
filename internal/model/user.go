// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// We use GitHub OAuth as the identity provider, so the primary external
// identifier is the GitHub user ID. We still generate our own internal
// string ID (xid) to avoid tying our primary keys to a third-party's
// numbering scheme.
//
// WHY GitHubID string (not int64)?
// GitHub's API returns a numeric ID, but we never do arithmetic on it —
// it's purely an opaque lookup key. Storing it as text keeps the model
// provider-neutral and matches the UNIQUE TEXT column in the DB.
//
// WHY Email string (not *string)?
// GitHub only exposes a primary email if the user has one marked primary
// and granted the user:email scope. We use an empty string as the zero
// value rather than a nullable pointer — simpler to work with and safe
// to display.
type User struct {
	ID          string    `json:"id"          db:"id"`
	GitHubID    string    `json:"githubId"    db:"github_id"` // GitHub's user ID, stored as text
	Username    string    `json:"username"    db:"username"`  // Display name, falls back to the login
	Email       string    `json:"email"       db:"email"`     // Primary email (may be empty)
	AvatarURL   string    `json:"avatarUrl"   db:"avatar_url"`
	LastLoginAt time.Time `json:"lastLoginAt" db:"last_login_at"` // Advanced on every OAuth callback
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
