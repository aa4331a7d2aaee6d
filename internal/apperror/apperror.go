package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth domain.
//
// Handlers map these to HTTP status codes with errors.Is, so any layer can
// wrap them with fmt.Errorf("...: %w", ...) and the mapping still works.
//
// The three token sentinels stay distinct even though they all surface as
// 401 — the service logs which one actually occurred, and tests assert on
// the distinction.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// Unauthenticated covers every caller-visible auth failure: a forged or
	// expired token, a refresh token with no matching stored record, or a
	// record that was already rotated away.
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenMalformed = errors.New("token malformed")

	// Upstream OAuth failures. Detail is logged; callers see a generic 500.
	ErrProviderExchange = errors.New("provider code exchange failed")
	ErrProviderProfile  = errors.New("provider profile fetch failed")

	// ErrHashFormat means a persisted digest could not be parsed — data
	// corruption, fatal for the request.
	ErrHashFormat = errors.New("malformed credential digest")
)

// AppError pairs a sentinel with a human-readable message.
type AppError struct {
	Err     error  // sentinel, reachable via errors.Is
	Message string // human-readable error message
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthenticated returns an AppError for a failed authentication attempt.
// HTTP handlers map this to 401 with a generic body.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
