package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitgate/internal/apperror"
	"github.com/sakif/gitgate/internal/model"
)

// upsertTestUser upserts a user and fails the test on error.
func upsertTestUser(t *testing.T, db *UserDB, githubID, username string) *model.User {
	t.Helper()
	user := &model.User{
		GitHubID:  githubID,
		Username:  username,
		Email:     username + "@example.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/1",
	}
	require.NoError(t, db.Upsert(context.Background(), user))
	return user
}

// countUsers returns the number of rows in the users table.
func countUsers(t *testing.T, db *UserDB) int {
	t.Helper()
	var n int
	require.NoError(t, db.conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	return n
}

// =========================================================================
// Create TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t).Users()

	user := &model.User{
		GitHubID:  "12345",
		Username:  "testuser",
		Email:     "test@example.com",
		AvatarURL: "https://example.com/avatar.png",
	}
	require.NoError(t, db.Create(context.Background(), user))

	// The caller's struct is filled in-place
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.False(t, user.UpdatedAt.IsZero())
}

func TestUserCreate_DuplicateGitHubID(t *testing.T) {
	db := newTestDB(t).Users()

	first := &model.User{GitHubID: "99999", Username: "firstuser"}
	require.NoError(t, db.Create(context.Background(), first))

	duplicate := &model.User{GitHubID: "99999", Username: "seconduser"}
	err := db.Create(context.Background(), duplicate)
	require.Error(t, err, "duplicate github_id must be rejected")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// Upsert TESTS
// =========================================================================

func TestUserUpsert_InsertsNewUser(t *testing.T) {
	db := newTestDB(t).Users()

	user := upsertTestUser(t, db, "42", "alice")

	assert.NotEmpty(t, user.ID)
	assert.False(t, user.LastLoginAt.IsZero())
	assert.Equal(t, 1, countUsers(t, db))
}

func TestUserUpsert_SecondCallbackUpdatesNotDuplicates(t *testing.T) {
	db := newTestDB(t).Users()

	first := upsertTestUser(t, db, "42", "alice")
	firstLogin := first.LastLoginAt

	time.Sleep(10 * time.Millisecond) // let last_login_at advance

	second := &model.User{
		GitHubID:  "42",
		Username:  "alice-renamed",
		Email:     "new@example.com",
		AvatarURL: "https://example.com/new.png",
	}
	require.NoError(t, db.Upsert(context.Background(), second))

	// Same internal ID, updated profile, still one row
	assert.Equal(t, first.ID, second.ID, "internal ID must be stable across upserts")
	assert.Equal(t, 1, countUsers(t, db))
	assert.True(t, second.LastLoginAt.After(firstLogin), "last_login_at should advance")

	stored, err := db.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice-renamed", stored.Username)
	assert.Equal(t, "new@example.com", stored.Email)
}

func TestUserUpsert_PreservesCreatedAt(t *testing.T) {
	db := newTestDB(t).Users()

	first := upsertTestUser(t, db, "7", "bob")
	created := first.CreatedAt

	second := &model.User{GitHubID: "7", Username: "bob"}
	require.NoError(t, db.Upsert(context.Background(), second))

	assert.WithinDuration(t, created, second.CreatedAt, time.Second)
}

func TestUserUpsert_KeepsRefreshTokensAcrossLogins(t *testing.T) {
	base := newTestDB(t)
	users, sessions := base.Users(), base.RefreshTokens()
	ctx := context.Background()

	user := upsertTestUser(t, users, "42", "alice")
	require.NoError(t, sessions.Create(ctx, &model.RefreshToken{
		UserID:    user.ID,
		TokenHash: "$2a$10$fakedigestfakedigestfakedigest",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	// A second login must not cascade away the user's other sessions
	require.NoError(t, users.Upsert(ctx, &model.User{GitHubID: "42", Username: "alice"}))

	tokens, err := sessions.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

// =========================================================================
// GetByID TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t).Users()

	created := upsertTestUser(t, db, "1001", "carol")

	got, err := db.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "1001", got.GitHubID)
	assert.Equal(t, "carol", got.Username)
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t).Users()

	_, err := db.GetByID(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
