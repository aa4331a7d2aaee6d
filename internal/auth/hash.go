// Package auth — refresh-secret hashing.
//
// WHY BCRYPT FOR TOKENS?
// Refresh tokens live in the database for up to 30 days. If the database
// leaks, raw tokens would be live sessions. We therefore store only a bcrypt
// digest: bcrypt is deliberately slow (tens of milliseconds per comparison),
// which makes offline brute-forcing of a stolen table impractical, and it
// salts every digest, so identical tokens never share a stored value.
//
// THE 72-BYTE WRINKLE:
// bcrypt only reads the first 72 bytes of its input, and a signed JWT is
// much longer than that — two tokens could collide on their prefix. So the
// secret is first reduced with SHA-256 (fixed 32 bytes, covers the whole
// token including the signature) and the digest of THAT is what bcrypt
// processes. The salted, non-deterministic property is unchanged.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/gitgate/internal/apperror"
)

// defaultCost is the bcrypt work factor for refresh-token digests.
//
// Cost 10 puts one comparison in the tens-of-milliseconds range on current
// server hardware. Rotation scans every outstanding record for a user, so
// each step up doubles the worst-case scan time — don't raise it without
// measuring.
const defaultCost = 10

// SecretHasher computes and verifies one-way digests of refresh-token
// secrets.
//
// It's a struct (not free functions) so the cost can be injected in tests —
// bcrypt's minimum cost 4 keeps the test suite fast without changing the
// logic under test.
type SecretHasher struct {
	cost int
}

// NewSecretHasher creates a SecretHasher with the default cost.
func NewSecretHasher() *SecretHasher {
	return &SecretHasher{cost: defaultCost}
}

// NewSecretHasherForTest creates a SecretHasher with a custom cost.
// Use bcrypt.MinCost (4) in tests. Do NOT use in production.
func NewSecretHasherForTest(cost int) *SecretHasher {
	return &SecretHasher{cost: cost}
}

// Hash computes a salted one-way digest of secret, suitable for storage.
// Hashing the same secret twice yields different digests.
func (h *SecretHasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(preimage(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing secret: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether secret matches the stored digest.
//
// A mismatch is (false, nil) — not an error. The only error condition is a
// digest that cannot be parsed as bcrypt output at all, which means the
// stored data is corrupt; that wraps apperror.ErrHashFormat and callers
// treat it as fatal for the request.
//
// bcrypt.CompareHashAndPassword compares in constant time internally, so
// response timing doesn't leak how close a guess was.
func (h *SecretHasher) Verify(secret, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), preimage(secret))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("auth: %w: %v", apperror.ErrHashFormat, err)
}

// preimage reduces an arbitrary-length secret to a fixed 32-byte input for
// bcrypt, covering the full token rather than its first 72 bytes.
func preimage(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
