// Package auth provides the building blocks of the session subsystem:
// JWT signing/verification, refresh-secret hashing, and the GitHub OAuth
// provider client.
//
// SESSION FLOW OVERVIEW:
//  1. User visits /auth/github → redirected to GitHub
//  2. GitHub calls back /auth/github/callback with a code
//  3. Server exchanges the code for a GitHub profile, upserts the user
//  4. Server issues TWO tokens: a short-lived access token (returned via
//     /auth/refresh and sent as a Bearer header) and a long-lived refresh
//     token (HttpOnly cookie, persisted hashed)
//  5. When the access token expires, POST /auth/refresh rotates the refresh
//     token and mints a fresh pair
//
// WHY TWO TOKENS?
// The access token is stateless — validating it needs no DB lookup, just the
// signing secret. Keeping it short-lived (15 min) bounds the damage if it
// leaks. The refresh token is long-lived but stateful: its hash must match a
// stored record, so the server can revoke it by deleting a row.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/gitgate/internal/apperror"
)

// TokenKind selects which signing secret and TTL a token is bound to.
type TokenKind int

const (
	// KindAccess is the short-lived bearer credential sent on API calls.
	KindAccess TokenKind = iota
	// KindRefresh is the long-lived credential stored hashed server-side.
	KindRefresh
)

func (k TokenKind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// TokenService signs and verifies the two token kinds.
//
// Each kind has its OWN secret. That's deliberate: a refresh token presented
// where an access token is expected (or vice versa) fails signature
// verification outright, so one kind can never impersonate the other.
type TokenService struct {
	access  tokenConfig
	refresh tokenConfig
}

type tokenConfig struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with distinct secrets and TTLs per
// kind. Secrets should be at least 32 bytes of random data in production:
//
//	JWT_ACCESS_TOKEN_SECRET=$(openssl rand -hex 32)
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(accessSecret) < 16 || len(refreshSecret) < 16 {
		return nil, errors.New("auth: JWT secrets must be at least 16 characters")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token TTLs must be positive")
	}
	return &TokenService{
		access:  tokenConfig{secret: []byte(accessSecret), ttl: accessTTL},
		refresh: tokenConfig{secret: []byte(refreshSecret), ttl: refreshTTL},
	}, nil
}

// claims is the JWT payload. jwt.RegisteredClaims carries the standard
// fields; we use "sub" (Subject) for the internal user ID.
type claims struct {
	jwt.RegisteredClaims
}

// RefreshTTL reports the configured refresh token lifetime. The refresh
// token store uses it for record expiry, and the HTTP layer for cookie
// max-age, so that all three lifetimes stay in sync.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refresh.ttl
}

// Sign creates a signed JWT of the given kind with subject as the "sub"
// claim and expiry now + TTL(kind).
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric — the same secret signs
// and verifies. Fine for a single service that is both issuer and audience.
func (s *TokenService) Sign(kind TokenKind, subject string) (string, error) {
	return s.signWithTTL(kind, subject, s.config(kind).ttl)
}

// signWithTTL creates a token with a custom expiry duration. Exercised by
// tests to mint already-expired tokens.
func (s *TokenService) signWithTTL(kind TokenKind, subject string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "gitgate",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.config(kind).secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", kind, err)
	}

	return signed, nil
}

// Verify parses and verifies a JWT of the given kind, returning the subject
// (user ID) it encodes.
//
// Failure modes, each with its own sentinel so the service layer can log
// what actually went wrong:
//   - apperror.ErrTokenExpired   — signature fine, past "exp"
//   - apperror.ErrTokenMalformed — not structurally a JWT
//   - apperror.ErrTokenInvalid   — bad signature, wrong issuer, wrong kind,
//     or anything else
//
// ALGORITHM CONFUSION:
// jwt.WithValidMethods pins HS256 so a token claiming alg "none" (or an
// RSA variant) is rejected before the signature is even checked.
func (s *TokenService) Verify(kind TokenKind, tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.config(kind).secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("gitgate"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", fmt.Errorf("auth: %s token: %w", kind, apperror.ErrTokenExpired)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", fmt.Errorf("auth: %s token: %w", kind, apperror.ErrTokenMalformed)
		default:
			return "", fmt.Errorf("auth: %s token: %w: %v", kind, apperror.ErrTokenInvalid, err)
		}
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: %s token: %w: bad claims", kind, apperror.ErrTokenInvalid)
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: %s token: %w: no subject", kind, apperror.ErrTokenInvalid)
	}

	return c.Subject, nil
}

func (s *TokenService) config(kind TokenKind) tokenConfig {
	if kind == KindRefresh {
		return s.refresh
	}
	return s.access
}
