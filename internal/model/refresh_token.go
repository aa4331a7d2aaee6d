package model

import "time"

// RefreshToken is one outstanding refresh credential for a user.
//
// THE RAW TOKEN IS NEVER PERSISTED. Only a bcrypt digest of it is stored
// (TokenHash), so a leaked database cannot be replayed as live sessions.
// The trade-off: bcrypt digests are salted and non-deterministic, so there
// is no way to look a presented token up directly — validation fetches all
// of a user's records and compares against each one in turn.
//
// A user may hold several records at once (one per device/browser). Each
// record is deleted exactly once: either when a rotation consumes it or
// when logout revokes it.
type RefreshToken struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	TokenHash string    `json:"-"         db:"token_hash"` // bcrypt digest, never serialized
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Expired reports whether the stored record's own expiry has passed.
//
// This is checked independently of the JWT signature expiry: the two TTLs
// are configured identically, but the row's lifetime is a separate fact
// from the token's cryptographic validity.
func (rt *RefreshToken) Expired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}
