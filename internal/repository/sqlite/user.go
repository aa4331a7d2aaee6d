package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/gitgate/internal/apperror"
	"github.com/sakif/gitgate/internal/model"
	"github.com/sakif/gitgate/internal/repository"
)

// UserDB implements repository.UserRepository on top of the shared
// connection pool. Obtain one via DB.Users.
type UserDB struct {
	conn *sql.DB
}

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// Create inserts a new user row. The caller's struct gets ID and timestamps
// filled in. A duplicate github_id surfaces as apperror.ErrValidation so
// the handler can return a 400 instead of a bare 500.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.LastLoginAt = now
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, username, email, avatar_url, last_login_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.GitHubID, user.Username, user.Email, user.AvatarURL,
		user.LastLoginAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.ValidationFailed("github_id",
				fmt.Sprintf("a user with github_id %s already exists", user.GitHubID))
		}
		return fmt.Errorf("sqlite: inserting user (githubID=%s): %w", user.GitHubID, err)
	}
	return nil
}

// Upsert inserts or updates a user based on their GitHub ID.
//
// First OAuth callback for a new GitHub account → INSERT with a fresh
// internal ID. Every later callback → UPDATE the profile fields (the user
// may have changed their name, email, or avatar on GitHub) and advance
// last_login_at. The internal ID is stable across updates.
//
// We don't use INSERT OR REPLACE here: REPLACE deletes the conflicting row
// first, which would cascade-delete the user's refresh tokens and log out
// all their other devices on every login.
func (db *UserDB) Upsert(ctx context.Context, user *model.User) error {
	var existingID string
	var createdAt time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID, &createdAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user by github_id %s: %w", user.GitHubID, err)
	}

	now := time.Now().UTC()

	if existingID != "" {
		user.ID = existingID
		user.CreatedAt = createdAt
		user.LastLoginAt = now
		user.UpdatedAt = now
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET username = ?, email = ?, avatar_url = ?, last_login_at = ?, updated_at = ?
			 WHERE id = ?`,
			user.Username, user.Email, user.AvatarURL, user.LastLoginAt, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	user.LastLoginAt = now
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, username, email, avatar_url, last_login_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.GitHubID, user.Username, user.Email, user.AvatarURL,
		user.LastLoginAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (githubID=%s): %w", user.GitHubID, err)
	}
	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, username, email, avatar_url, last_login_at, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID, &u.GitHubID, &u.Username, &u.Email, &u.AvatarURL,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}
