// Package service — session lifecycle business logic.
//
// SessionService is the orchestrator of the auth subsystem. It sits between
// the HTTP handlers and the lower-level pieces:
//
//	AuthHandler (HTTP) → SessionService → UserRepository / RefreshTokenRepository (DB)
//	                   ↘ TokenService (JWT) ↘ SecretHasher (bcrypt) ↘ GitHubProvider (OAuth)
//
// KEY RESPONSIBILITIES:
//   - Drive the GitHub OAuth callback: exchange, profile, upsert, issue pair
//   - Validate access tokens and resolve them to user records
//   - Rotate refresh tokens: verify, scan, compare-and-delete, reissue
//   - Keep every auth rule out of the HTTP layer
//
// All dependencies arrive through the constructor — no package-level state,
// so tests wire in fakes freely.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/gitgate/internal/apperror"
	"github.com/sakif/gitgate/internal/auth"
	"github.com/sakif/gitgate/internal/model"
	"github.com/sakif/gitgate/internal/repository"
)

// Provider is the slice of GitHubProvider the session service needs.
// An interface so tests can fake the two outbound provider calls without
// an HTTP server.
type Provider interface {
	AuthURL() (url, state string)
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*auth.Profile, error)
}

// SessionService handles token issuance, validation, and rotation.
type SessionService struct {
	users    repository.UserRepository
	sessions repository.RefreshTokenRepository
	tokens   *auth.TokenService
	hasher   *auth.SecretHasher
	provider Provider
	logger   *slog.Logger
}

// NewSessionService creates a SessionService with all required dependencies.
// Called from server.go when wiring the dependency graph.
func NewSessionService(
	users repository.UserRepository,
	sessions repository.RefreshTokenRepository,
	tokens *auth.TokenService,
	hasher *auth.SecretHasher,
	provider Provider,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		provider: provider,
		logger:   logger,
	}
}

// TokenPair is a freshly minted access + refresh token pair. The refresh
// token here is the RAW value — this is the only moment it exists outside
// the client; only its hash is persisted.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CallbackResult bundles what the OAuth callback produces: the upserted user
// and the issued pair, so the handler can set the cookie and respond in one
// step.
type CallbackResult struct {
	User *model.User
	TokenPair
}

// LoginURL returns the provider authorization URL to redirect the browser
// to, along with the state value embedded in it.
func (s *SessionService) LoginURL() (url, state string) {
	return s.provider.AuthURL()
}

// HandleCallback completes a login: it exchanges the OAuth code, fetches the
// GitHub profile, upserts the user, and issues a new token pair whose
// refresh half is persisted hashed.
//
// Every step's failure is terminal for the request — there are no retries
// and no partial success: the cookie is only ever set after the user row,
// both tokens, and the stored record all exist. Which step failed is kept
// for the log line only; callers just see the wrapped error.
func (s *SessionService) HandleCallback(ctx context.Context, code string) (*CallbackResult, error) {
	providerToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("oauth callback: code exchange failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/session: exchanging code: %w", err)
	}

	profile, err := s.provider.FetchProfile(ctx, providerToken)
	if err != nil {
		s.logger.Error("oauth callback: profile fetch failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/session: fetching profile: %w", err)
	}

	user := &model.User{
		GitHubID:  profile.ExternalID,
		Username:  profile.Username,
		Email:     profile.Email,
		AvatarURL: profile.AvatarURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.logger.Error("oauth callback: upsert failed",
			slog.String("githubID", profile.ExternalID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/session: upserting user (githubID=%s): %w", profile.ExternalID, err)
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		s.logger.Error("oauth callback: issuing tokens failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return &CallbackResult{User: user, TokenPair: *pair}, nil
}

// ValidateAccess verifies an access token and resolves its subject to the
// full user record.
//
// Both failure modes answer 401/404 at the HTTP boundary, but they stay
// distinct internally: codec failures carry the ErrToken* sentinels, a
// vanished subject carries ErrNotFound. The distinction matters for logs
// (a flood of invalid signatures looks very different from deleted users).
func (s *SessionService) ValidateAccess(ctx context.Context, tokenStr string) (*model.User, error) {
	userID, err := s.tokens.Verify(auth.KindAccess, tokenStr)
	if err != nil {
		s.logger.Debug("access token rejected", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/session: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("access token subject no longer exists", slog.String("userID", userID))
		}
		return nil, fmt.Errorf("service/session: resolving subject %s: %w", userID, err)
	}

	return user, nil
}

// Rotate exchanges a presented refresh token for a brand-new pair,
// invalidating the old record.
//
// The refresh token lifecycle: a record is ISSUED once, and a presentation
// of its raw token ends in exactly one of
//   - EXPIRED — the codec rejects the signature expiry before storage is
//     even consulted, or the stored record's own expiry has passed
//   - INVALID — signature forged, or no stored digest matches
//   - ROTATED — the record is deleted and a replacement pair issued
//
// The delete is a compare-and-delete: Delete reports whether this call
// actually removed the row, so of two racing rotations with the same raw
// token at most one proceeds to reissue. A failed rotation leaves the store
// untouched.
func (s *SessionService) Rotate(ctx context.Context, presented string) (*TokenPair, error) {
	userID, err := s.tokens.Verify(auth.KindRefresh, presented)
	if err != nil {
		s.logger.Debug("refresh token rejected by codec", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/session: %w", err)
	}

	record, err := s.matchRecord(ctx, userID, presented)
	if err != nil {
		return nil, err
	}
	if record == nil {
		s.logger.Warn("refresh token has no matching stored record", slog.String("userID", userID))
		return nil, apperror.Unauthenticated("refresh token not recognized")
	}

	// The row has its own expiry, independent of the JWT's. Reject before
	// touching the store so an expired presentation deletes nothing.
	if record.Expired(time.Now()) {
		s.logger.Info("refresh token record expired",
			slog.String("userID", userID),
			slog.String("recordID", record.ID),
		)
		return nil, apperror.Unauthenticated("refresh token expired")
	}

	deleted, err := s.sessions.Delete(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("service/session: invalidating record %s: %w", record.ID, err)
	}
	if !deleted {
		// Another rotation consumed this record between our scan and our
		// delete. At most one caller wins.
		s.logger.Warn("refresh token already rotated",
			slog.String("userID", userID),
			slog.String("recordID", record.ID),
		)
		return nil, apperror.Unauthenticated("refresh token already used")
	}

	pair, err := s.issuePair(ctx, userID)
	if err != nil {
		s.logger.Error("rotation: issuing replacement pair failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("refresh token rotated", slog.String("userID", userID))
	return pair, nil
}

// Revoke deletes the stored record matching a presented refresh token.
//
// Called on logout so that clearing the cookie also kills the server-side
// credential — otherwise the session would silently stay redeemable for up
// to 30 days. Best-effort: an unmatched or malformed token is not an error
// worth surfacing to a user who is leaving anyway.
func (s *SessionService) Revoke(ctx context.Context, presented string) {
	userID, err := s.tokens.Verify(auth.KindRefresh, presented)
	if err != nil {
		s.logger.Debug("logout: refresh token rejected by codec", slog.String("error", err.Error()))
		return
	}

	record, err := s.matchRecord(ctx, userID, presented)
	if err != nil || record == nil {
		return
	}

	if _, err := s.sessions.Delete(ctx, record.ID); err != nil {
		s.logger.Error("logout: deleting record failed",
			slog.String("recordID", record.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("refresh token revoked on logout", slog.String("userID", userID))
}

// GetUserByID returns the user for the given internal ID. Used by the
// user-facing handlers after token validation.
func (s *SessionService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/session: user ID must not be empty")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/session: fetching user %s: %w", id, err)
	}
	return user, nil
}

// matchRecord scans the user's stored records for one whose digest matches
// the presented raw token.
//
// This linear scan is inherent to the design: digests are salted, so there
// is nothing to look up by. Do not "optimize" it into a deterministic-hash
// lookup — that would surrender the salting. Returns (nil, nil) when
// nothing matches.
func (s *SessionService) matchRecord(ctx context.Context, userID, presented string) (*model.RefreshToken, error) {
	candidates, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/session: listing records for user %s: %w", userID, err)
	}

	for i := range candidates {
		ok, err := s.hasher.Verify(presented, candidates[i].TokenHash)
		if err != nil {
			// Corrupt digest in storage — fatal for this request.
			return nil, fmt.Errorf("service/session: comparing record %s: %w", candidates[i].ID, err)
		}
		if ok {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// issuePair signs a fresh access + refresh token pair for userID and
// persists the refresh half as a hashed record expiring with the refresh
// TTL.
func (s *SessionService) issuePair(ctx context.Context, userID string) (*TokenPair, error) {
	accessToken, err := s.tokens.Sign(auth.KindAccess, userID)
	if err != nil {
		return nil, fmt.Errorf("service/session: signing access token: %w", err)
	}

	refreshToken, err := s.tokens.Sign(auth.KindRefresh, userID)
	if err != nil {
		return nil, fmt.Errorf("service/session: signing refresh token: %w", err)
	}

	digest, err := s.hasher.Hash(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("service/session: hashing refresh token: %w", err)
	}

	record := &model.RefreshToken{
		UserID:    userID,
		TokenHash: digest,
		ExpiresAt: time.Now().Add(s.tokens.RefreshTTL()).UTC(),
	}
	if err := s.sessions.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("service/session: storing refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
