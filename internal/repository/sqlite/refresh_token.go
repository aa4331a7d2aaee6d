package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/gitgate/internal/model"
	"github.com/sakif/gitgate/internal/repository"
)

// RefreshTokenDB implements repository.RefreshTokenRepository on top of the
// shared connection pool. Obtain one via DB.RefreshTokens.
type RefreshTokenDB struct {
	conn *sql.DB
}

// compile-time check that *RefreshTokenDB implements repository.RefreshTokenRepository
var _ repository.RefreshTokenRepository = (*RefreshTokenDB)(nil)

// Create persists a refresh-token record. The ID is generated here if the
// caller didn't set one.
func (db *RefreshTokenDB) Create(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == "" {
		token.ID = xid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting refresh token for user %s: %w", token.UserID, err)
	}
	return nil
}

// ListByUser returns every outstanding refresh-token record for a user.
//
// The digests are salted bcrypt output, so a presented token can't be looked
// up by value — the service scans this list and compares against each digest
// in turn. Users rarely hold more than a handful of sessions, so the scan
// stays cheap.
func (db *RefreshTokenDB) ListByUser(ctx context.Context, userID string) ([]model.RefreshToken, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		 FROM refresh_tokens WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing refresh tokens for user %s: %w", userID, err)
	}
	defer rows.Close()

	var tokens []model.RefreshToken
	for rows.Next() {
		var t model.RefreshToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning refresh token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating refresh token rows: %w", err)
	}

	return tokens, nil
}

// Delete removes a refresh-token record by ID and reports whether a row was
// actually deleted.
//
// The report is what makes rotation safe under concurrency: two requests
// presenting the same raw token can both pass the scan-and-compare step,
// but the single DELETE is atomic at the row level, so exactly one of them
// observes true and is allowed to mint the replacement pair. Deleting an
// already-gone ID is not an error — it returns false.
func (db *RefreshTokenDB) Delete(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE id = ?`, id,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting refresh token %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking deleted rows for token %s: %w", id, err)
	}
	return affected > 0, nil
}
