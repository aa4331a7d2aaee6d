// Package repository defines the persistence interfaces consumed by the
// service layer. The sqlite subpackage provides the concrete implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/gitgate/internal/model"
)

// UserRepository is the user directory.
type UserRepository interface {
	// Create inserts a new user. Fails on a duplicate github_id.
	Create(ctx context.Context, user *model.User) error

	// Upsert inserts or updates a user keyed on github_id: first OAuth
	// callback creates the row, subsequent callbacks refresh the profile
	// fields and last_login_at. The user's ID is populated on return.
	Upsert(ctx context.Context, user *model.User) error

	// GetByID returns the user with the given internal ID, or an error
	// wrapping apperror.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RefreshTokenRepository stores hashed refresh-token records.
type RefreshTokenRepository interface {
	// Create persists a new record. ID, if empty, is generated.
	Create(ctx context.Context, token *model.RefreshToken) error

	// ListByUser returns every outstanding record for a user. Digests are
	// salted, so there is no direct lookup — callers scan and compare.
	ListByUser(ctx context.Context, userID string) ([]model.RefreshToken, error)

	// Delete removes the record with the given ID and reports whether a row
	// was actually deleted. Rotation uses that report as a compare-and-delete:
	// when two requests race on the same token, exactly one sees true.
	Delete(ctx context.Context, id string) (bool, error)
}
