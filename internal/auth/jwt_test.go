package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/sakif/gitgate/internal/apperror"
)

// newTestTokenService creates a TokenService with fixed, known secrets so
// tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(
		"access-secret-at-least-16-chars",
		"refresh-secret-at-least-16-char",
		15*time.Minute,
		30*24*time.Hour,
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", "refresh-secret-at-least-16-char", time.Minute, time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_IdenticalSecrets(t *testing.T) {
	same := "the-one-secret-used-for-both!!"
	_, err := NewTokenService(same, same, time.Minute, time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject identical access and refresh secrets")
	}
}

func TestNewTokenService_NonPositiveTTL(t *testing.T) {
	_, err := NewTokenService(
		"access-secret-at-least-16-chars",
		"refresh-secret-at-least-16-char",
		0, time.Hour,
	)
	if err == nil {
		t.Fatal("NewTokenService() should reject a zero TTL")
	}
}

// =========================================================================
// SIGN / VERIFY ROUND-TRIP TESTS
// =========================================================================

func TestSignVerify_RoundTripBothKinds(t *testing.T) {
	ts := newTestTokenService(t)

	for _, kind := range []TokenKind{KindAccess, KindRefresh} {
		t.Run(kind.String(), func(t *testing.T) {
			token, err := ts.Sign(kind, "user-abc-123")
			if err != nil {
				t.Fatalf("Sign(%v) error = %v", kind, err)
			}

			got, err := ts.Verify(kind, token)
			if err != nil {
				t.Fatalf("Verify(%v) error = %v", kind, err)
			}
			if got != "user-abc-123" {
				t.Errorf("Verify(%v) subject = %q, want %q", kind, got, "user-abc-123")
			}
		})
	}
}

// =========================================================================
// CROSS-KIND REJECTION TESTS
// =========================================================================

func TestVerify_AccessTokenRejectedAsRefresh(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Sign(KindAccess, "user-123")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	_, err = ts.Verify(KindRefresh, token)
	if err == nil {
		t.Fatal("Verify(KindRefresh) should reject a token signed as KindAccess")
	}
	if !errors.Is(err, apperror.ErrTokenInvalid) {
		t.Errorf("error = %v, want wrapped ErrTokenInvalid", err)
	}
}

func TestVerify_RefreshTokenRejectedAsAccess(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Sign(KindRefresh, "user-123")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	_, err = ts.Verify(KindAccess, token)
	if err == nil {
		t.Fatal("Verify(KindAccess) should reject a token signed as KindRefresh")
	}
}

// =========================================================================
// FAILURE CLASSIFICATION TESTS
// =========================================================================

func TestVerify_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	// Mint a token that expired 1 second ago
	token, err := ts.signWithTTL(KindAccess, "user-123", -1*time.Second)
	if err != nil {
		t.Fatalf("signWithTTL() error = %v", err)
	}

	_, err = ts.Verify(KindAccess, token)
	if !errors.Is(err, apperror.ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want wrapped ErrTokenExpired", err)
	}
}

func TestVerify_MalformedToken(t *testing.T) {
	ts := newTestTokenService(t)

	_, err := ts.Verify(KindAccess, "definitely-not-a-jwt")
	if !errors.Is(err, apperror.ErrTokenMalformed) {
		t.Fatalf("Verify() error = %v, want wrapped ErrTokenMalformed", err)
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	ts := newTestTokenService(t)

	_, err := ts.Verify(KindRefresh, "")
	if err == nil {
		t.Fatal("Verify() should return an error for an empty string")
	}
}

func TestVerify_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Sign(KindAccess, "user-123")

	// Flip the tail of the signature to simulate tampering
	tampered := token[:len(token)-3] + "xxx"

	_, err := ts.Verify(KindAccess, tampered)
	if !errors.Is(err, apperror.ErrTokenInvalid) {
		t.Fatalf("Verify() error = %v, want wrapped ErrTokenInvalid", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts1 := newTestTokenService(t)
	ts2, err := NewTokenService(
		"other-access-secret-16-chars!!!",
		"other-refresh-secret-16-chars!!",
		15*time.Minute,
		30*24*time.Hour,
	)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts1.Sign(KindAccess, "user-123")

	if _, err := ts2.Verify(KindAccess, token); err == nil {
		t.Fatal("Verify() should fail when using a different secret")
	}
}

// =========================================================================
// MISC
// =========================================================================

func TestRefreshTTL(t *testing.T) {
	ts := newTestTokenService(t)

	if got := ts.RefreshTTL(); got != 30*24*time.Hour {
		t.Errorf("RefreshTTL() = %v, want %v", got, 30*24*time.Hour)
	}
}

func TestSign_DifferentSubjectsGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	token1, _ := ts.Sign(KindAccess, "user-aaa")
	token2, _ := ts.Sign(KindAccess, "user-bbb")

	if token1 == token2 {
		t.Error("Sign() returned identical tokens for different subjects")
	}
}
