// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Sentinels shared by the repository and service layers. Handlers map these to
// HTTP status codes exactly once, at the request boundary.
var (
	// ErrNotFound indicates the requested call, user, or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired indicates the verification window for a call has elapsed.
	// Distinct from ErrNotFound: the session exists but its code is no longer meaningful.
	ErrExpired = errors.New("verification code expired")

	// ErrForbidden indicates the actor is not a participant of the call.
	ErrForbidden = errors.New("not a call participant")

	// ErrCodeMismatch indicates a submitted verification code did not match.
	ErrCodeMismatch = errors.New("incorrect verification code")

	// ErrBadRequest indicates invalid input (self-call, inactive receiver, empty reason).
	ErrBadRequest = errors.New("bad request")

	// ErrConflict indicates a concurrent-update retry was exhausted.
	ErrConflict = errors.New("concurrent update conflict")
)
